package corpusindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/blevesearch/mmap-go"
)

const bytesPerFloat = 4

// VectorMatrix is a read-only view of vectors.f32: a dense (N, dims)
// row-major float32 matrix, memory-mapped so a query doesn't have to read
// the whole file into the heap just to score a handful of candidates.
type VectorMatrix struct {
	file *os.File
	mm   mmap.MMap
	rows int
	dims int
}

// OpenVectorMatrix memory-maps path as a read-only (rows, dims) matrix.
func OpenVectorMatrix(path string, dims int) (*VectorMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat vectors file: %w", err)
	}

	rowBytes := dims * bytesPerFloat
	if rowBytes == 0 || info.Size()%int64(rowBytes) != 0 {
		f.Close()
		return nil, fmt.Errorf("vectors file size %d is not a multiple of row size %d", info.Size(), rowBytes)
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		if info.Size() == 0 {
			return &VectorMatrix{file: f, mm: nil, rows: 0, dims: dims}, nil
		}
		return nil, fmt.Errorf("mmap vectors file: %w", err)
	}

	return &VectorMatrix{
		file: f,
		mm:   mm,
		rows: int(info.Size()) / rowBytes,
		dims: dims,
	}, nil
}

// Rows returns the number of vectors in the matrix.
func (v *VectorMatrix) Rows() int { return v.rows }

// Dims returns the width of each vector.
func (v *VectorMatrix) Dims() int { return v.dims }

// Row decodes row i into a freshly allocated float32 slice. Decoding (not
// an unsafe reinterpret-cast) keeps the format's little-endian contract
// explicit regardless of host byte order.
func (v *VectorMatrix) Row(i int) []float32 {
	if i < 0 || i >= v.rows {
		return nil
	}
	out := make([]float32, v.dims)
	base := i * v.dims * bytesPerFloat
	for d := 0; d < v.dims; d++ {
		bits := binary.LittleEndian.Uint32(v.mm[base+d*bytesPerFloat : base+(d+1)*bytesPerFloat])
		out[d] = math.Float32frombits(bits)
	}
	return out
}

// Close unmaps the file and releases the file handle.
func (v *VectorMatrix) Close() error {
	if v.mm != nil {
		if err := v.mm.Unmap(); err != nil {
			v.file.Close()
			return fmt.Errorf("unmap vectors file: %w", err)
		}
	}
	return v.file.Close()
}

// WriteVectors writes vectors (each of length dims) to path as a raw
// little-endian (N, dims) row-major matrix.
func WriteVectors(path string, vectors [][]float32, dims int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vectors file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, dims*bytesPerFloat)
	for _, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("vector has %d dims, want %d", len(vec), dims)
		}
		for d, val := range vec {
			binary.LittleEndian.PutUint32(buf[d*bytesPerFloat:(d+1)*bytesPerFloat], math.Float32bits(val))
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("write vector row: %w", err)
		}
	}
	return f.Sync()
}
