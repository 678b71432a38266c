// Package snapshot persists built similarity graphs so a service restart
// does not recompute every pairwise similarity.
//
// Layout: [magic:4][version:4][length:4][payload:N][crc32:4], big endian.
// The payload is a gob encoded Snapshot compressed with snappy; the
// checksum covers the compressed payload.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
)

// Format constants.
const (
	Magic   uint32 = 0x53515344 // "SQSD"
	Version uint32 = 1

	maxPayload = 1 << 30
)

var (
	ErrBadMagic    = errors.New("snapshot: bad magic")
	ErrBadVersion  = errors.New("snapshot: unsupported version")
	ErrBadChecksum = errors.New("snapshot: checksum mismatch")
	ErrCorrupt     = errors.New("snapshot: corrupt payload")
)

// Snapshot is everything needed to rebuild a composition context.
type Snapshot struct {
	Dataset         string
	Fingerprint     string // identifies the source files the graphs came from
	CreatedAt       time.Time
	Goalkeepers     []model.Goalkeeper
	Defense         playergraph.Export
	Attack          playergraph.Export
	DefenseCriteria map[string]float64
	AttackCriteria  map[string]float64
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	payload := snappy.Encode(nil, raw.Bytes())
	if len(payload) > maxPayload {
		return fmt.Errorf("snapshot: payload of %d bytes is too large", len(payload))
	}

	bw := bufio.NewWriter(w)
	for _, v := range []uint32{Magic, Version, uint32(len(payload))} {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := bw.Write(payload); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	var head [3]uint32
	if err := binary.Read(br, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	switch {
	case head[0] != Magic:
		return nil, fmt.Errorf("%w: %x", ErrBadMagic, head[0])
	case head[1] != Version:
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, head[1])
	case head[2] > maxPayload:
		return nil, fmt.Errorf("%w: payload length %d", ErrCorrupt, head[2])
	}

	payload := make([]byte, head[2])
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrCorrupt, err)
	}
	var sum uint32
	if err := binary.Read(br, binary.BigEndian, &sum); err != nil {
		return nil, fmt.Errorf("%w: checksum: %w", ErrCorrupt, err)
	}
	if got := crc32.ChecksumIEEE(payload); sum != got {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrBadChecksum, sum, got)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &s, nil
}

// Save writes s to path atomically through a temp file and rename.
func Save(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the snapshot at path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Graphs restores both similarity graphs.
func (s *Snapshot) Graphs() (defense, attack *playergraph.Graph, err error) {
	if defense, err = playergraph.Restore(s.Defense); err != nil {
		return nil, nil, fmt.Errorf("defense graph: %w", err)
	}
	if attack, err = playergraph.Restore(s.Attack); err != nil {
		return nil, nil, fmt.Errorf("attack graph: %w", err)
	}
	return defense, attack, nil
}
