package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Names of the built-in liveness messages
const (
	PingName = "ping"
	PongName = "pong"
)

// PingData is the payload of a ping
type PingData struct {
	Nonce    string `json:"nonce"`
	SentUnix int64  `json:"sent"`
}

// PongData echoes a ping back with the time it was answered
type PongData struct {
	Nonce        string `json:"nonce"`
	PingSentUnix int64  `json:"ping_sent"`
	RecvUnix     int64  `json:"recv"`
}

// Ping builds a ping stamped with now and a fresh nonce
func Ping(now time.Time) Message {
	m, _ := Named(PingName, PingData{Nonce: uuid.NewString(), SentUnix: now.UnixNano()})
	return m
}

// Pong answers the ping carried by m. ok is false if m is not a ping.
func Pong(m Message, now time.Time) (Message, bool) {
	if !m.IsNamed(PingName) {
		return Message{}, false
	}
	var p PingData
	if err := m.Decode(&p); err != nil {
		return Message{}, false
	}
	pong, err := Named(PongName, PongData{Nonce: p.Nonce, PingSentUnix: p.SentUnix, RecvUnix: now.UnixNano()})
	if err != nil {
		return Message{}, false
	}
	return pong, true
}

// RoundTrip returns the time between the original ping and now
func (p PongData) RoundTrip(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.PingSentUnix))
}
