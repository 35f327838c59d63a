package config

// Mode selects the transport a relay is built on
type Mode string

const (
	// ModeMemory uses an in-process loopback (no network required)
	ModeMemory Mode = "memory"

	// ModeWebSocket dials a websocket peer
	ModeWebSocket Mode = "websocket"

	// ModeAzure dials an Azure Relay hybrid connection
	ModeAzure Mode = "azure"
)

// IsValid checks if the mode is valid
func (m Mode) IsValid() bool {
	return m == ModeMemory || m == ModeWebSocket || m == ModeAzure
}

// String returns the string representation
func (m Mode) String() string {
	return string(m)
}
