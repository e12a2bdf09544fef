package config

import (
	"encoding/json"
	"fmt"
)

type jsoncConfig struct {
	Audio    *jsoncAudio    `json:"audio"`
	Recorder *jsoncRecorder `json:"recorder"`
	Listener *jsoncListener `json:"listener"`
	Encoder  *jsoncEncoder  `json:"encoder"`
	STT      *jsoncEndpoint `json:"stt"`
	TTT      *jsoncEndpoint `json:"ttt"`
	Vocab    *jsoncVocab    `json:"vocab"`
	Debug    *jsoncDebug    `json:"debug"`
	HTTP     *jsoncHTTP     `json:"http"`
}

type jsoncAudio struct {
	SampleRate *int    `json:"sample_rate"`
	Channels   *int    `json:"channels"`
	Blocksize  *int    `json:"blocksize"`
	Dtype      *string `json:"dtype"`
}

type jsoncRecorder struct {
	MaxDurationSeconds *float64 `json:"max_duration_seconds"`
	MaxFrames          *int     `json:"max_frames"`
}

type jsoncListener struct {
	WakeWindowSeconds   *float64 `json:"wake_window_seconds"`
	WakeFrameMs         *int     `json:"wake_frame_ms"`
	WakeThreshold        *float64 `json:"wake_threshold"`
	WakeModels          []string `json:"wake_models"`
	WakeModelDir        *string  `json:"wake_model_dir"`
	WakeOnnxLib         *string  `json:"wake_onnx_lib"`
	VadThreshold        *float64 `json:"vad_threshold"`
	VadMinSilenceMs     *int     `json:"vad_min_silence_ms"`
	VadSpeechPadMs      *float64 `json:"vad_speech_pad_ms"`
	VadOnnxLib          *string  `json:"vad_onnx_lib"`
	VadModelPath        *string  `json:"vad_model_path"`
	ArmedTimeoutSeconds *float64 `json:"armed_timeout_seconds"`
	MaxUtteranceSeconds *float64 `json:"max_utterance_seconds"`
	EndHangoverMs       *float64 `json:"end_hangover_ms"`
	MaxFrames           *int     `json:"max_frames"`
}

type jsoncEncoder struct {
	Binary       *string  `json:"binary"`
	Args         []string `json:"args"`
	ContainerExt *string  `json:"container_ext"`
	TmpDir       *string  `json:"tmp_dir"`
}

type jsoncEndpoint struct {
	Endpoint    *string  `json:"endpoint"`
	DialTimeout *float64 `json:"dial_timeout_seconds"`
}

type jsoncVocab struct {
	GlobalSets []string                 `json:"global_sets"`
	MaxPhrases *int                     `json:"max_phrases"`
	Sets       map[string]jsoncVocabSet `json:"sets"`
}

type jsoncVocabSet struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

type jsoncDebug struct {
	AudioDump *bool   `json:"audio_dump"`
	GRPCDump  *bool   `json:"grpc_dump"`
	DumpDir   *string `json:"dump_dir"`
}

type jsoncHTTP struct {
	ListenAddr *string `json:"listen_addr"`
	SocketPath *string `json:"socket_path"`
}

// Parse normalizes JSONC content and applies it on top of base, returning
// the merged Config plus any non-fatal warnings.
func Parse(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	var payload jsoncConfig
	if err := json.Unmarshal([]byte(normalized), &payload); err != nil {
		return Config{}, nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg := base
	var warnings []Warning

	if payload.Audio != nil {
		a := payload.Audio
		if a.SampleRate != nil {
			cfg.Audio.SampleRate = *a.SampleRate
		}
		if a.Channels != nil {
			cfg.Audio.Channels = *a.Channels
		}
		if a.Blocksize != nil {
			cfg.Audio.Blocksize = *a.Blocksize
		}
		if a.Dtype != nil {
			cfg.Audio.Dtype = *a.Dtype
		}
	}

	if payload.Recorder != nil {
		r := payload.Recorder
		if r.MaxDurationSeconds != nil {
			cfg.Recorder.MaxDurationSeconds = *r.MaxDurationSeconds
		}
		if r.MaxFrames != nil {
			cfg.Recorder.MaxFrames = *r.MaxFrames
		}
	}

	if payload.Listener != nil {
		l := payload.Listener
		if l.WakeWindowSeconds != nil {
			cfg.Listener.WakeWindowSeconds = *l.WakeWindowSeconds
		}
		if l.WakeFrameMs != nil {
			cfg.Listener.WakeFrameMs = *l.WakeFrameMs
		}
		if l.WakeThreshold != nil {
			cfg.Listener.WakeThreshold = *l.WakeThreshold
		}
		if l.WakeModels != nil {
			cfg.Listener.WakeModels = l.WakeModels
		}
		if l.WakeModelDir != nil {
			cfg.Listener.WakeModelDir = *l.WakeModelDir
		}
		if l.WakeOnnxLib != nil {
			cfg.Listener.WakeOnnxLib = *l.WakeOnnxLib
		}
		if l.VadThreshold != nil {
			cfg.Listener.VadThreshold = *l.VadThreshold
		}
		if l.VadMinSilenceMs != nil {
			cfg.Listener.VadMinSilenceMs = *l.VadMinSilenceMs
		}
		if l.VadSpeechPadMs != nil {
			cfg.Listener.VadSpeechPadMs = *l.VadSpeechPadMs
		}
		if l.VadOnnxLib != nil {
			cfg.Listener.VadOnnxLib = *l.VadOnnxLib
		}
		if l.VadModelPath != nil {
			cfg.Listener.VadModelPath = *l.VadModelPath
		}
		if l.ArmedTimeoutSeconds != nil {
			cfg.Listener.ArmedTimeoutSeconds = *l.ArmedTimeoutSeconds
		}
		if l.MaxUtteranceSeconds != nil {
			cfg.Listener.MaxUtteranceSeconds = *l.MaxUtteranceSeconds
		}
		if l.EndHangoverMs != nil {
			cfg.Listener.EndHangoverMs = *l.EndHangoverMs
		}
		if l.MaxFrames != nil {
			cfg.Listener.MaxFrames = *l.MaxFrames
		}
	}

	if payload.Encoder != nil {
		e := payload.Encoder
		if e.Binary != nil {
			cfg.Encoder.Binary = *e.Binary
		}
		if e.Args != nil {
			cfg.Encoder.Args = e.Args
		}
		if e.ContainerExt != nil {
			cfg.Encoder.ContainerExt = *e.ContainerExt
		}
		if e.TmpDir != nil {
			cfg.Encoder.TmpDir = *e.TmpDir
		}
	}

	if payload.STT != nil {
		applyEndpoint(payload.STT, &cfg.STT)
	}
	if payload.TTT != nil {
		applyEndpoint(payload.TTT, &cfg.TTT)
	}

	if payload.Vocab != nil {
		v := payload.Vocab
		if v.GlobalSets != nil {
			cfg.Vocab.GlobalSets = v.GlobalSets
		}
		if v.MaxPhrases != nil {
			cfg.Vocab.MaxPhrases = *v.MaxPhrases
		}
		if v.Sets != nil {
			cfg.Vocab.Sets = make(map[string]VocabSet, len(v.Sets))
			for name, set := range v.Sets {
				boost := 1.0
				if set.Boost != nil {
					boost = *set.Boost
				}
				cfg.Vocab.Sets[name] = VocabSet{Boost: boost, Phrases: set.Phrases}
			}
		}
	}

	if payload.Debug != nil {
		d := payload.Debug
		if d.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *d.AudioDump
		}
		if d.GRPCDump != nil {
			cfg.Debug.EnableGRPCDump = *d.GRPCDump
		}
		if d.DumpDir != nil {
			cfg.Debug.DumpDir = *d.DumpDir
		}
	}

	if payload.HTTP != nil {
		h := payload.HTTP
		if h.ListenAddr != nil {
			cfg.HTTP.ListenAddr = *h.ListenAddr
		}
		if h.SocketPath != nil {
			cfg.HTTP.SocketPath = *h.SocketPath
		}
	}

	return cfg, warnings, nil
}

func applyEndpoint(src *jsoncEndpoint, dst *EndpointConfig) {
	if src.Endpoint != nil {
		dst.Endpoint = *src.Endpoint
	}
	if src.DialTimeout != nil {
		dst.DialTimeout = *src.DialTimeout
	}
}
