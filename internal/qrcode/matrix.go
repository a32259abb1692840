// Package qrcode wraps the external QR codec. The codec is consumed as a
// capability: given a payload and an error-correction level it returns an
// immutable square grid of dark/light modules.
package qrcode

import (
	"errors"
	"fmt"
	"strings"

	goqr "github.com/skip2/go-qrcode"
)

// Level is the error-correction level handed to the codec.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

var ErrInvalidLevel = errors.New("invalid error-correction level")

// ParseLevel accepts L/M/Q/H in any case; empty selects M.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return LevelM, nil
	case LevelL:
		return LevelL, nil
	case LevelM:
		return LevelM, nil
	case LevelQ:
		return LevelQ, nil
	case LevelH:
		return LevelH, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Matrix is an immutable square module grid.
type Matrix struct {
	n     int
	cells []bool
}

// NewMatrix copies rows into a Matrix. Rows must form a non-empty square.
func NewMatrix(rows [][]bool) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.New("matrix is empty")
	}
	cells := make([]bool, 0, n*n)
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("matrix row %d has %d modules, want %d", i, len(r), n)
		}
		cells = append(cells, r...)
	}
	return &Matrix{n: n, cells: cells}, nil
}

// Size is the number of modules per side.
func (m *Matrix) Size() int { return m.n }

// Dark reports whether the module at row, col is dark. Out-of-range
// coordinates are light.
func (m *Matrix) Dark(row, col int) bool {
	if row < 0 || col < 0 || row >= m.n || col >= m.n {
		return false
	}
	return m.cells[row*m.n+col]
}

// MatrixProvider computes the module grid for a payload.
type MatrixProvider interface {
	Matrix(payload string, level Level) (*Matrix, error)
}

// SkipProvider is the go-qrcode backed MatrixProvider. The border is
// disabled: the renderer owns the quiet zone.
type SkipProvider struct{}

// NewSkipProvider returns the default provider.
func NewSkipProvider() *SkipProvider { return &SkipProvider{} }

var _ MatrixProvider = (*SkipProvider)(nil)

func (SkipProvider) Matrix(payload string, level Level) (*Matrix, error) {
	if payload == "" {
		return nil, errors.New("payload is empty")
	}
	q, err := goqr.New(payload, recoveryLevel(level))
	if err != nil {
		return nil, fmt.Errorf("encode matrix: %w", err)
	}
	q.DisableBorder = true
	return NewMatrix(q.Bitmap())
}

func recoveryLevel(l Level) goqr.RecoveryLevel {
	switch l {
	case LevelL:
		return goqr.Low
	case LevelQ:
		return goqr.High
	case LevelH:
		return goqr.Highest
	default:
		return goqr.Medium
	}
}
