package app

import (
	"context"

	"go.uber.org/zap"
)

// joinCodeAlphabet has 33 symbols. I and O are dropped so neither the 1/I
// nor the 0/O pair can be confused when a code is read off a projector.
const joinCodeAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	joinCodeLength = 6
	// joinCodeAttempts bounds the uniqueness retry loop. With 33^6 possible
	// codes and a handful of concurrent sessions, exhausting the attempts
	// and accepting the residual collision risk is acceptable.
	joinCodeAttempts = 5
)

// allocateJoinCode draws random codes until one is unused by any non-terminal
// session, giving up after a bounded number of attempts.
func (s *GameService) allocateJoinCode(ctx context.Context) (string, error) {
	var code string
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code = s.randomCode()
		inUse, err := s.sessions.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	s.logger.Warn("join code still colliding after retries, accepting", zap.String("code", code))
	return code, nil
}

func (s *GameService) randomCode() string {
	s.codeMu.Lock()
	defer s.codeMu.Unlock()
	buf := make([]byte, joinCodeLength)
	for i := range buf {
		buf[i] = joinCodeAlphabet[s.codeRand.Intn(len(joinCodeAlphabet))]
	}
	return string(buf)
}
