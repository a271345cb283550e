package hnsw

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/hnsw/codec"
)

// snapshotMagic identifies hnsw snapshot streams.
var snapshotMagic = [4]byte{'H', 'N', 'S', 'W'}

// maxSnapshotLayer bounds the per-node layer count accepted from a snapshot
// stream. The exponential layer distribution makes anything near this value
// unreachable; larger values indicate corruption.
const maxSnapshotLayer = 255

// parameters is the persisted parameters record. It captures everything
// needed to rebuild an equivalent index around the serialized graph.
type parameters struct {
	M                     int               `json:"m"`
	LevelLambda           float64           `json:"level_lambda"`
	Selection             SelectionStrategy `json:"selection"`
	EFConstruction        int               `json:"ef_construction"`
	EFSearch              int               `json:"ef_search"`
	ExpandCandidates      bool              `json:"expand_candidates"`
	KeepPrunedConnections bool              `json:"keep_pruned_connections"`
	EnableDistanceCache   bool              `json:"enable_distance_cache"`
	DistanceCacheSize     int               `json:"distance_cache_size"`
	InitialCapacity       int               `json:"initial_capacity"`
}

// SnapshotOptions configures snapshot serialization.
type SnapshotOptions struct {
	// Codec encodes the parameters record. Nil means codec.Default. The
	// codec name is stored in the stream and resolved back on restore.
	Codec codec.Codec
}

// Snapshot serializes the graph to w: magic header, parameters record, node
// array, entry point. Items are not serialized; Restore re-attaches them.
//
// The output is deterministic for a given graph state. Snapshotting an empty
// graph returns ErrInvalidOperation.
func (idx *Index[T]) Snapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	start := time.Now()
	err := idx.snapshot(w, optFns...)
	idx.metrics.RecordSnapshot(time.Since(start), err)
	return err
}

func (idx *Index[T]) snapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	opts := SnapshotOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	idx.gate.rlock()
	defer idx.gate.runlock()

	if idx.store.len() == 0 {
		return fmt.Errorf("%w: cannot snapshot an empty graph", ErrInvalidOperation)
	}

	params := parameters{
		M:                     idx.opts.M,
		LevelLambda:           idx.lambda,
		Selection:             idx.opts.Selection,
		EFConstruction:        idx.opts.EFConstruction,
		EFSearch:              idx.opts.EFSearch,
		ExpandCandidates:      idx.opts.ExpandCandidates,
		KeepPrunedConnections: idx.opts.KeepPrunedConnections,
		EnableDistanceCache:   idx.opts.EnableDistanceCache,
		DistanceCacheSize:     idx.opts.DistanceCacheSize,
		InitialCapacity:       idx.opts.InitialCapacity,
	}
	paramsBlob, err := opts.Codec.Marshal(params)
	if err != nil {
		return fmt.Errorf("snapshot: encode parameters: %w", err)
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := writeBlob16(bw, []byte(opts.Codec.Name())); err != nil {
		return err
	}
	if err := writeBlob32(bw, paramsBlob); err != nil {
		return err
	}

	if err := writeU32(bw, uint32(idx.store.len())); err != nil {
		return err
	}
	for _, n := range idx.store.nodes {
		if err := writeU32(bw, uint32(n.MaxLayer)); err != nil {
			return err
		}
		for layer := 0; layer <= n.MaxLayer; layer++ {
			conns := n.Connections[layer]
			if err := writeU32(bw, uint32(len(conns))); err != nil {
				return err
			}
			for _, c := range conns {
				if err := writeU32(bw, c); err != nil {
					return err
				}
			}
		}
	}

	if err := bw.WriteByte(1); err != nil {
		return err
	}
	if err := writeU32(bw, idx.entryPoint); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return err
	}

	idx.logger.Debug("snapshot written",
		"nodes", idx.store.len(),
		"codec", opts.Codec.Name(),
	)

	return nil
}

// Restore rebuilds an index from a snapshot stream and re-attaches the
// stored items in id order. Leftover items beyond the node count are
// returned to the caller.
//
// Parameters are rehydrated from the stream. Option functions may adjust
// runtime behavior (EFSearch, ThreadSafe, Logger, ...), but the structural
// parameters M and LevelLambda always come from the snapshot, and no
// distance cache is allocated for a restored graph by default; call
// ResizeDistanceCache to re-enable it.
//
// A stream that does not begin with the snapshot magic fails with
// ErrInvalidHeader; when r is seekable, the read position is rewound so the
// caller can probe the stream for other formats.
func Restore[T any](r io.Reader, distance DistanceFunc[T], items []T, optFns ...func(o *Options)) (*Index[T], []T, error) {
	start := time.Now()

	// The index does not exist yet when a restore fails, so the collector
	// and logger are resolved from the options up front.
	probe := DefaultOptions
	for _, fn := range optFns {
		fn(&probe)
	}
	metrics := probe.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	logger := probe.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	idx, leftover, err := restoreIndex(r, distance, items, optFns...)
	metrics.RecordRestore(time.Since(start), err)
	if err != nil {
		logger.Warn("snapshot restore failed", "error", err)
		return nil, nil, err
	}

	logger.Debug("snapshot restored",
		"nodes", idx.store.len(),
		"leftover", len(leftover),
		"duration", time.Since(start),
	)

	return idx, leftover, nil
}

func restoreIndex[T any](r io.Reader, distance DistanceFunc[T], items []T, optFns ...func(o *Options)) (*Index[T], []T, error) {
	if distance == nil {
		return nil, nil, &ErrInvalidParameter{Name: "distance", Value: nil, Reason: "must not be nil"}
	}

	var magic [4]byte
	n, err := io.ReadFull(r, magic[:])
	if err != nil {
		rewind(r, int64(n))
		return nil, nil, fmt.Errorf("%w: truncated stream after %d bytes: %v", ErrInvalidHeader, n, err)
	}
	if magic != snapshotMagic {
		rewind(r, int64(n))
		return nil, nil, fmt.Errorf("%w: got %q", ErrInvalidHeader, magic[:])
	}

	br := bufio.NewReader(r)

	codecName, err := readBlob16(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read codec name: %w", err)
	}
	c, ok := codec.ByName(string(codecName))
	if !ok {
		return nil, nil, fmt.Errorf("snapshot: unknown codec %q", codecName)
	}

	paramsBlob, err := readBlob32(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read parameters: %w", err)
	}
	var params parameters
	if err := c.Unmarshal(paramsBlob, &params); err != nil {
		return nil, nil, fmt.Errorf("snapshot: decode parameters: %w", err)
	}

	opts := DefaultOptions
	opts.M = params.M
	opts.LevelLambda = params.LevelLambda
	opts.Selection = params.Selection
	opts.EFConstruction = params.EFConstruction
	opts.EFSearch = params.EFSearch
	opts.ExpandCandidates = params.ExpandCandidates
	opts.KeepPrunedConnections = params.KeepPrunedConnections
	opts.EnableDistanceCache = params.EnableDistanceCache
	opts.InitialCapacity = params.InitialCapacity
	opts.DistanceCacheSize = 0

	for _, fn := range optFns {
		fn(&opts)
	}
	opts.M = params.M
	opts.LevelLambda = params.LevelLambda

	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	idx := newIndex(distance, opts)

	count, err := readU32(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read node count: %w", err)
	}
	if int(count) > len(items) {
		return nil, nil, &ErrItemCount{Nodes: int(count), Items: len(items)}
	}

	for id := uint32(0); id < count; id++ {
		maxLayer, err := readU32(br)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: node %d: read max layer: %w", id, err)
		}
		if maxLayer > maxSnapshotLayer {
			return nil, nil, fmt.Errorf("snapshot: node %d: implausible max layer %d", id, maxLayer)
		}

		node := idx.store.append(int(maxLayer))
		for layer := 0; layer <= int(maxLayer); layer++ {
			connCount, err := readU32(br)
			if err != nil {
				return nil, nil, fmt.Errorf("snapshot: node %d layer %d: read degree: %w", id, layer, err)
			}
			if int(connCount) > idx.store.maxConnections(layer) {
				return nil, nil, fmt.Errorf("snapshot: node %d layer %d: degree %d exceeds cap %d",
					id, layer, connCount, idx.store.maxConnections(layer))
			}
			for i := 0; i < int(connCount); i++ {
				neighbor, err := readU32(br)
				if err != nil {
					return nil, nil, fmt.Errorf("snapshot: node %d layer %d: read neighbor: %w", id, layer, err)
				}
				if neighbor >= count {
					return nil, nil, fmt.Errorf("snapshot: node %d layer %d: neighbor %d out of range", id, layer, neighbor)
				}
				node.Connections[layer] = append(node.Connections[layer], neighbor)
			}
		}
	}

	hasEntry, err := br.ReadByte()
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read entry point: %w", err)
	}
	if hasEntry != 0 {
		entry, err := readU32(br)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: read entry point id: %w", err)
		}
		if entry >= count {
			return nil, nil, fmt.Errorf("snapshot: entry point %d out of range", entry)
		}
		idx.entryPoint = entry
		idx.hasEntryPoint = true
	} else if count > 0 {
		return nil, nil, errors.New("snapshot: non-empty graph without entry point")
	}

	idx.items = append(idx.items, items[:count]...)

	return idx, items[count:], nil
}

// rewind seeks r back by n bytes when it supports seeking.
func rewind(r io.Reader, n int64) {
	if s, ok := r.(io.Seeker); ok {
		_, _ = s.Seek(-n, io.SeekCurrent)
	}
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeBlob16(w io.Writer, b []byte) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(len(b)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlob16(r io.Reader) ([]byte, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.LittleEndian.Uint16(buf[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeBlob32(w io.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlob32(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
