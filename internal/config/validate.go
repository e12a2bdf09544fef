package config

import "fmt"

// Validate rejects a Config with structurally nonsensical values before
// it reaches the audio/listener/encoder components that assume them.
func Validate(cfg Config) error {
	if cfg.Audio.SampleRate <= 0 || cfg.Audio.Channels <= 0 || cfg.Audio.Blocksize <= 0 {
		return fmt.Errorf("config: audio sample_rate/channels/blocksize must be positive")
	}
	switch cfg.Audio.Dtype {
	case "float32", "int16", "float64":
	default:
		return fmt.Errorf("config: unknown audio dtype %q", cfg.Audio.Dtype)
	}

	if cfg.Recorder.MaxDurationSeconds <= 0 {
		return fmt.Errorf("config: recorder.max_duration_seconds must be positive")
	}

	if cfg.Listener.ArmedTimeoutSeconds <= 0 {
		return fmt.Errorf("config: listener.armed_timeout_seconds must be positive")
	}
	if cfg.Listener.MaxUtteranceSeconds <= 0 {
		return fmt.Errorf("config: listener.max_utterance_seconds must be positive")
	}
	if cfg.Listener.EndHangoverMs <= 0 {
		return fmt.Errorf("config: listener.end_hangover_ms must be positive")
	}
	if len(cfg.Listener.WakeModels) == 0 {
		return fmt.Errorf("config: listener.wake_models must list at least one model")
	}

	if cfg.Encoder.Binary == "" {
		return fmt.Errorf("config: encoder.binary is required")
	}
	if cfg.Encoder.ContainerExt == "" {
		return fmt.Errorf("config: encoder.container_ext is required")
	}

	if cfg.STT.Endpoint == "" {
		return fmt.Errorf("config: stt.endpoint is required")
	}
	if cfg.TTT.Endpoint == "" {
		return fmt.Errorf("config: ttt.endpoint is required")
	}

	return nil
}
