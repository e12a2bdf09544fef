package wakeword

import (
	"fmt"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
)

// Pipeline constants matching the openWakeWord cascade: melspectrogram →
// embedding → per-keyword wakeword head. The melspectrogram and embedding
// models are shared across every configured wakeword model.
const (
	chunkSamples  = 1280 // 80 ms @ 16 kHz
	melWindowSize = 76   // embedding model needs 76 mel frames
	melStepSize   = 8    // step between embedding windows
	embeddingDim  = 96   // output dim per embedding frame
	nEmbedFrames  = 16   // wakeword model needs 16 embedding frames
	melBins       = 32   // melspectrogram output bands
	nMelFrames    = 5    // 1280 samples -> 5 mel frames
)

// Config holds the model paths and tuning knobs for the ONNX cascade
// adapter. ModelDir must contain melspectrogram.onnx, embedding_model.onnx,
// and one file per entry in Models.
type Config struct {
	ModelDir  string
	Models    []string // wakeword model filenames, relative to ModelDir
	OnnxLib   string
	Threshold float64
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.5
	}
}

type cascade struct {
	name    string
	session *ort.AdvancedSession
	in      *ort.Tensor[float32]
	out     *ort.Tensor[float32]
}

// Adapter is the ONNX Runtime implementation of Port.
type Adapter struct {
	cfg Config

	melspecSess *ort.AdvancedSession
	melspecIn   *ort.Tensor[float32]
	melspecOut  *ort.Tensor[float32]

	embedSess *ort.AdvancedSession
	embedIn   *ort.Tensor[float32]
	embedOut  *ort.Tensor[float32]

	cascades []cascade

	melBuffer   []float32
	embedBuffer []float32
	audioRem    []int16
}

// New initializes the ONNX environment and loads the shared melspec and
// embedding sessions plus one wakeword session per configured model.
func New(cfg Config) (*Adapter, error) {
	cfg.defaults()
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("wakeword: no models configured")
	}

	ort.SetSharedLibraryPath(cfg.OnnxLib)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("wakeword: onnx init: %w", err)
	}

	a := &Adapter{cfg: cfg, embedBuffer: make([]float32, nEmbedFrames*embeddingDim)}

	var err error
	a.melspecIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, chunkSamples))
	if err != nil {
		return nil, err
	}
	a.melspecOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, nMelFrames, melBins))
	if err != nil {
		return nil, err
	}
	melspecPath := filepath.Join(cfg.ModelDir, "melspectrogram.onnx")
	msIn, msOut, err := ort.GetInputOutputInfo(melspecPath)
	if err != nil {
		return nil, err
	}
	a.melspecSess, err = ort.NewAdvancedSession(melspecPath,
		[]string{msIn[0].Name}, []string{msOut[0].Name},
		[]ort.Value{a.melspecIn}, []ort.Value{a.melspecOut}, nil)
	if err != nil {
		return nil, err
	}

	a.embedIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, melWindowSize, melBins, 1))
	if err != nil {
		return nil, err
	}
	a.embedOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, 1, embeddingDim))
	if err != nil {
		return nil, err
	}
	embedPath := filepath.Join(cfg.ModelDir, "embedding_model.onnx")
	emIn, emOut, err := ort.GetInputOutputInfo(embedPath)
	if err != nil {
		return nil, err
	}
	a.embedSess, err = ort.NewAdvancedSession(embedPath,
		[]string{emIn[0].Name}, []string{emOut[0].Name},
		[]ort.Value{a.embedIn}, []ort.Value{a.embedOut}, nil)
	if err != nil {
		return nil, err
	}

	for _, model := range cfg.Models {
		path := filepath.Join(cfg.ModelDir, model)
		wwIn, err := ort.NewEmptyTensor[float32](ort.NewShape(1, nEmbedFrames, embeddingDim))
		if err != nil {
			return nil, err
		}
		wwOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
		if err != nil {
			return nil, err
		}
		wwInInfo, wwOutInfo, err := ort.GetInputOutputInfo(path)
		if err != nil {
			return nil, err
		}
		sess, err := ort.NewAdvancedSession(path,
			[]string{wwInInfo[0].Name}, []string{wwOutInfo[0].Name},
			[]ort.Value{wwIn}, []ort.Value{wwOut}, nil)
		if err != nil {
			return nil, err
		}
		a.cascades = append(a.cascades, cascade{name: model, session: sess, in: wwIn, out: wwOut})
	}

	return a, nil
}

// Close releases every ONNX session and tensor and tears down the
// environment. Not part of Port; called by the composition root at
// shutdown.
func (a *Adapter) Close() {
	a.melspecIn.Destroy()
	a.melspecOut.Destroy()
	a.melspecSess.Destroy()
	a.embedIn.Destroy()
	a.embedOut.Destroy()
	a.embedSess.Destroy()
	for _, c := range a.cascades {
		c.in.Destroy()
		c.out.Destroy()
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}

// Reset clears the mel/embedding/audio buffers so a subsequent Detect
// starts fresh, without reloading any model.
func (a *Adapter) Reset() {
	a.melBuffer = a.melBuffer[:0]
	for i := range a.embedBuffer {
		a.embedBuffer[i] = 0
	}
	a.audioRem = a.audioRem[:0]
}

// Detect feeds frame's mono int16 samples through the shared melspec and
// embedding stages and every configured wakeword head, returning the
// highest score seen per model this call.
func (a *Adapter) Detect(frame audioframe.AudioFrame) (domain.WakeEvent, error) {
	event := domain.WakeEvent{Scores: make(map[string]float64, len(a.cascades))}

	a.audioRem = append(a.audioRem, frame.AsMonoInt16()...)

	for len(a.audioRem) >= chunkSamples {
		chunk := append([]int16(nil), a.audioRem[:chunkSamples]...)
		n := copy(a.audioRem, a.audioRem[chunkSamples:])
		a.audioRem = a.audioRem[:n]

		if err := a.runMelspec(chunk); err != nil {
			return domain.WakeEvent{}, err
		}

		newEmbed, err := a.runEmbedding()
		if err != nil {
			return domain.WakeEvent{}, err
		}
		if !newEmbed {
			continue
		}

		for _, c := range a.cascades {
			score, err := a.runWakeword(c)
			if err != nil {
				return domain.WakeEvent{}, err
			}
			if score > event.Scores[c.name] {
				event.Scores[c.name] = score
			}
		}
	}

	for _, score := range event.Scores {
		if score >= a.cfg.Threshold {
			event.Detected = true
			break
		}
	}
	return event, nil
}

func (a *Adapter) runMelspec(chunk []int16) error {
	inData := a.melspecIn.GetData()
	for i, v := range chunk {
		inData[i] = float32(v)
	}
	if err := a.melspecSess.Run(); err != nil {
		return fmt.Errorf("wakeword: melspec: %w", err)
	}
	melData := a.melspecOut.GetData()
	for f := 0; f < nMelFrames; f++ {
		for b := 0; b < melBins; b++ {
			idx := f*melBins + b
			if idx < len(melData) {
				a.melBuffer = append(a.melBuffer, melData[idx]/10.0+2.0)
			}
		}
	}
	return nil
}

func (a *Adapter) runEmbedding() (bool, error) {
	newEmbed := false
	totalMel := len(a.melBuffer) / melBins

	for totalMel >= melWindowSize {
		eData := a.embedIn.GetData()
		copy(eData, a.melBuffer[:melWindowSize*melBins])
		if err := a.embedSess.Run(); err != nil {
			return newEmbed, fmt.Errorf("wakeword: embed: %w", err)
		}
		eOut := a.embedOut.GetData()

		copy(a.embedBuffer, a.embedBuffer[embeddingDim:])
		copy(a.embedBuffer[(nEmbedFrames-1)*embeddingDim:], eOut[:embeddingDim])
		newEmbed = true

		n := copy(a.melBuffer, a.melBuffer[melStepSize*melBins:])
		a.melBuffer = a.melBuffer[:n]
		totalMel = len(a.melBuffer) / melBins
	}

	if totalMel > melWindowSize {
		excess := (totalMel - melWindowSize) * melBins
		n := copy(a.melBuffer, a.melBuffer[excess:])
		a.melBuffer = a.melBuffer[:n]
	}
	return newEmbed, nil
}

func (a *Adapter) runWakeword(c cascade) (float64, error) {
	wwData := c.in.GetData()
	copy(wwData, a.embedBuffer)
	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("wakeword: %s: %w", c.name, err)
	}
	return float64(c.out.GetData()[0]), nil
}
