package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Sync struct {
		PendingTimeout Duration `json:"pending_timeout"`
		ConflictWindow Duration `json:"conflict_window"`
	} `json:"sync,omitempty"`

	Transport struct {
		Mode           string   `json:"mode"`
		HTTPAddress    string   `json:"http_address"`
		WSAddress      string   `json:"ws_address"`
		RequestTimeout Duration `json:"request_timeout"`
		Token          string   `json:"token"`
	} `json:"transport,omitempty"`

	Storage struct {
		Snapshot struct {
			DSN string `json:"dsn"`
		} `json:"snapshot,omitempty"`
	} `json:"storage,omitempty"`

	Workers struct {
		ResyncInterval Duration `json:"resync_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Name:    jsonCfg.App.Name,
			Version: jsonCfg.App.Version,
		},
		Sync: Sync{
			PendingTimeout: time.Duration(jsonCfg.Sync.PendingTimeout),
			ConflictWindow: time.Duration(jsonCfg.Sync.ConflictWindow),
		},
		Transport: Transport{
			Mode:           jsonCfg.Transport.Mode,
			HTTPAddress:    jsonCfg.Transport.HTTPAddress,
			WSAddress:      jsonCfg.Transport.WSAddress,
			RequestTimeout: time.Duration(jsonCfg.Transport.RequestTimeout),
			Token:          jsonCfg.Transport.Token,
		},
		Storage: Storage{
			Snapshot: Snapshot{
				DSN: jsonCfg.Storage.Snapshot.DSN,
			},
		},
		Workers: Workers{
			ResyncInterval: time.Duration(jsonCfg.Workers.ResyncInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
