package config

// Default returns the built-in configuration used when no config file is
// present or a field is left unset.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			Blocksize:  512,
			Dtype:      "int16",
		},
		Recorder: RecorderConfig{
			MaxDurationSeconds: 300,
			MaxFrames:          4096,
		},
		Listener: ListenerConfig{
			WakeWindowSeconds:   1.0,
			WakeFrameMs:         80,
			WakeThreshold:       0.5,
			WakeModels:          []string{"hey_dictate"},
			WakeModelDir:        "",
			WakeOnnxLib:         "",
			VadThreshold:        0.5,
			VadMinSilenceMs:     300,
			VadSpeechPadMs:      100,
			VadOnnxLib:          "",
			VadModelPath:        "",
			ArmedTimeoutSeconds: 8,
			MaxUtteranceSeconds: 30,
			EndHangoverMs:       400,
			MaxFrames:           1024,
		},
		Encoder: EncoderConfig{
			Binary:       "ffmpeg",
			ContainerExt: "flac",
			TmpDir:       "",
		},
		STT: EndpointConfig{
			Endpoint:    "localhost:50051",
			DialTimeout: 10,
		},
		TTT: EndpointConfig{
			Endpoint:    "http://localhost:8081/enhance",
			DialTimeout: 10,
		},
		Vocab: VocabConfig{
			MaxPhrases: 100,
		},
		Debug: DebugConfig{
			EnableAudioDump: false,
			EnableGRPCDump:  false,
			DumpDir:         "",
		},
		HTTP: HTTPConfig{
			ListenAddr: "",
			SocketPath: "",
		},
	}
}
