package domain

import "time"

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	StatusLobby        SessionStatus = "lobby"
	StatusLive         SessionStatus = "live"
	StatusIntermission SessionStatus = "intermission"
	StatusEnded        SessionStatus = "ended"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded
}

// TransitionAction is a host-requested lifecycle change.
type TransitionAction string

const (
	ActionStart           TransitionAction = "start"
	ActionNextQuestion    TransitionAction = "nextQuestion"
	ActionShowLeaderboard TransitionAction = "showLeaderboard"
	ActionEnd             TransitionAction = "end"
)

// End reasons recorded on a session when it reaches the ended status.
const (
	EndReasonCompleted = "completed_all_questions"
	EndReasonHost      = "ended_by_host"
	EndReasonTimeout   = "timeout"
	EndReasonLeft      = "host_left"
)

// Settings are the per-session game parameters fixed at creation.
type Settings struct {
	QuestionTimeLimitMs int     `json:"questionTimeLimitMs" yaml:"question_time_limit_ms"`
	BasePoints          int     `json:"basePoints" yaml:"base_points"`
	MultiplierStep      float64 `json:"multiplierStep" yaml:"multiplier_step"`
}

// Session is one live quiz instance: a single host, many players, one
// authoritative question pointer and clock.
type Session struct {
	ID            string        `json:"id"`
	JoinCode      string        `json:"joinCode"`
	HostID        string        `json:"hostId"`
	Status        SessionStatus `json:"status"`
	QuestionSetID string        `json:"questionSetId,omitempty"`
	LegacySetID   string        `json:"legacySetId,omitempty"`

	// Questions is the pinned, order-preserving question sequence. Empty
	// until the session starts; never re-resolved afterwards.
	Questions []Question `json:"questions,omitempty"`

	// CurrentQuestion is -1 before start and only ever moves forward.
	CurrentQuestion   int       `json:"currentQuestion"`
	QuestionStartedAt time.Time `json:"questionStartedAt,omitempty"`

	// Transitioning marks an in-flight lifecycle change so concurrent
	// triggers surface as a conflict instead of a double advance.
	Transitioning bool `json:"transitioning"`

	Settings    Settings   `json:"settings"`
	PlayerCount int        `json:"playerCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	EndReason   string     `json:"endReason,omitempty"`
}

// Player is one participant's standing within a session. Records are
// created on first join and survive disconnects for the session's lifetime.
type Player struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"sessionId"`
	Nickname         string    `json:"nickname"`
	LearnerID        string    `json:"learnerId,omitempty"`
	TotalPoints      int       `json:"totalPoints"`
	CorrectCount     int       `json:"correctCount"`
	AnsweredCount    int       `json:"answeredCount"`
	AvgResponseMs    float64   `json:"avgResponseMs"`
	Streak           int       `json:"streak"`
	BestStreak       int       `json:"bestStreak"`
	FastestCorrectMs int       `json:"fastestCorrectMs,omitempty"`
	Connected        bool      `json:"connected"`
	LastSeen         time.Time `json:"lastSeen"`
}

// Question is read-only quiz content owned by an external question bank.
// Answer holds the correct option for choice questions, or the expected
// value for free-text ones.
type Question struct {
	Index       int      `json:"index"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Answer is an append-only fact recording one player's submission for one
// question. At most one exists per (session, player, question index).
type Answer struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	PlayerID      string    `json:"playerId"`
	QuestionIndex int       `json:"questionIndex"`
	Selection     string    `json:"selection"`
	Correct       bool      `json:"correct"`
	ResponseMs    int       `json:"responseMs"`
	Points        int       `json:"points"`
	Multiplier    float64   `json:"multiplier"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	Nickname    string `json:"nickname"`
	TotalPoints int    `json:"totalPoints"`
	Streak      int    `json:"streak"`
}

// Leaderboard captures the ordered scoreboard pushed to subscribers.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Status    SessionStatus      `json:"status"`
	Question  int                `json:"question"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ReapReport summarizes one reaper sweep.
type ReapReport struct {
	StaleFound int `json:"staleFound"`
	Ended      int `json:"ended"`
}
