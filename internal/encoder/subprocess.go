package encoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
)

// Config describes the external encoder subprocess: a binary fed raw
// interleaved little-endian int16 PCM on stdin, given the desired output
// path as its last argument, expected to write a container file there.
type Config struct {
	Binary       string
	Args         []string // extra args inserted before the output path
	ContainerExt string   // e.g. "flac", "ogg" (without the dot)
	TmpDir       string
}

// Subprocess is the Port implementation that shells out to an external
// encoder for every SaveRecording call.
type Subprocess struct {
	cfg Config
}

// New constructs a Subprocess encoder from cfg.
func New(cfg Config) *Subprocess {
	return &Subprocess{cfg: cfg}
}

// SaveRecording writes rec's samples as raw interleaved PCM to the
// encoder subprocess's stdin and waits for it to write the container
// file. A non-zero exit surfaces as EncodeFailed carrying stderr.
func (s *Subprocess) SaveRecording(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
	if err := rec.Validate(); err != nil {
		return domain.Recording{}, err
	}

	filename := fmt.Sprintf("rec-%s.%s", randomHex(), s.cfg.ContainerExt)
	outPath := filepath.Join(s.cfg.TmpDir, filename)

	argv := append([]string{}, s.cfg.Args...)
	argv = append(argv, outPath)

	cmd := exec.CommandContext(ctx, s.cfg.Binary, argv...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return domain.Recording{}, fmt.Errorf("%w: open stdin: %v", errs.ErrEncodeFailed, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return domain.Recording{}, fmt.Errorf("%w: start %s: %v", errs.ErrEncodeFailed, s.cfg.Binary, err)
	}

	writeErr := writeInterleavedPCM(stdin, rec.Data)
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return domain.Recording{}, fmt.Errorf("%w: %s", errs.ErrEncodeFailed, strings.TrimSpace(stderr.String()))
	}
	if writeErr != nil {
		return domain.Recording{}, fmt.Errorf("%w: write stdin: %v", errs.ErrEncodeFailed, writeErr)
	}

	persisted := rec
	persisted.Path = outPath
	persisted.Data = nil
	persisted.ID = outPath
	return persisted, nil
}

func writeInterleavedPCM(w interface{ Write([]byte) (int, error) }, samples []int16) error {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	_, err := w.Write(buf)
	return err
}

// randomHex returns a UUIDv4 with its dashes stripped, giving 32 hex
// characters of randomness without pulling in a second random-id library.
func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
