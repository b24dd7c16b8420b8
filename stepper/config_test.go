package stepper

import (
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, c Config)
	}{
		{
			name: "full config",
			yaml: "accuracy: 1e-4\nstart_time: 1\nstop_time: 5\nmax_step: 0.05\n",
			check: func(t *testing.T, c Config) {
				if c.Accuracy != 1e-4 || c.StartTime != 1 || c.StopTime != 5 || c.MaxStep != 0.05 {
					t.Errorf("parsed config = %+v", c)
				}
			},
		},
		{
			name: "defaults fill zero fields",
			yaml: "stop_time: 2\n",
			check: func(t *testing.T, c Config) {
				def := DefaultConfig()
				if c.Accuracy != def.Accuracy || c.MaxStep != def.MaxStep {
					t.Errorf("defaults not applied: %+v", c)
				}
				if c.Precision <= 0 {
					t.Errorf("precision default missing")
				}
			},
		},
		{
			name:    "negative accuracy",
			yaml:    "accuracy: -1\n",
			wantErr: "accuracy",
		},
		{
			name:    "stop before start",
			yaml:    "start_time: 5\nstop_time: 1\n",
			wantErr: "precedes",
		},
		{
			name:    "malformed yaml",
			yaml:    "accuracy: [oops\n",
			wantErr: "parsing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, c)
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
