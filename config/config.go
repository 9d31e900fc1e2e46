// Package config loads the platform's network parameters and MAC tuning
// knobs from JSON, in the style of the teacher's json-tagged wire structs
// (cmd/mqttradio/raw.go's RawRxPacket/RawTxPacket) applied here to settings
// instead of packets, and of radioSettings for the "bag of radio tuning
// parameters" shape.
package config

import (
	"encoding/json"
	"io"
)

// Config holds the network parameters and the values spec §6
// "Initialization defaults" hardwires, loaded once at startup. cmd/hardmacd
// applies only PANID, ExtendedPANID, NetworkName and Channel; hardmac.Init
// takes no Config and pushes its own built-in MAC defaults, so the tuning
// fields here are not applied to the radio.
type Config struct {
	PANID          uint16 `json:"pan_id"`
	ExtendedPANID  [8]byte `json:"extended_pan_id"`
	NetworkName    string  `json:"network_name"`
	Channel        uint8   `json:"channel"`

	MaxFrameRetries        uint8   `json:"max_frame_retries"`
	MaxCSMABackoffs        uint8   `json:"max_csma_backoffs"`
	MaxBE                  uint8   `json:"max_be"`
	DefaultKeySource       [8]byte `json:"default_key_source"`
	LQIMode                uint8   `json:"lqi_mode"`
	TransactionPersistSecs uint8   `json:"transaction_persist_secs"`
}

// Default returns the configuration spec §6 hardwires, for callers that
// don't load one from a file.
func Default() Config {
	return Config{
		Channel:                15,
		MaxFrameRetries:        7,
		MaxCSMABackoffs:        5,
		MaxBE:                  4,
		DefaultKeySource:       [8]byte{0, 0, 0, 0, 0, 0, 0, 0xFF},
		LQIMode:                1, // energy detect, per cascoda.LQIModeEnergyDetect
		TransactionPersistSecs: 90,
	}
}

// Load reads a JSON-encoded Config from r, starting from Default so any
// field the file omits keeps its spec §6 default value.
func Load(r io.Reader) (Config, error) {
	conf := Default()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}
