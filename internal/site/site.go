// Package site loads the auxiliary files drawn under a robot trajectory:
// the site map description and the robot circuit.
package site

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrInvalidMapFile = errors.New("invalid map file")
	ErrInvalidCircuit = errors.New("invalid circuit file")
)

// Map is the background image of a site, placed in robot coordinates.
type Map struct {
	Marker  string
	File    string
	Ratio   float64
	SizeX   float64
	SizeY   float64
	OffsetX float64
	OffsetY float64
}

// Extent returns the image bounds in robot coordinates.
func (m Map) Extent() (left, right, bottom, top float64) {
	left = m.OffsetX
	right = m.OffsetX + m.SizeX*m.Ratio
	bottom = m.OffsetY
	top = m.OffsetY + m.SizeY*m.Ratio
	return left, right, bottom, top
}

// Deco is a decoration point drawn over the map.
type Deco struct {
	Marker string
	Color  string
	Size   float64
	X      float64
	Y      float64
}

// ParseMapFile parses a map description:
//
//	# comment
//	f <image> <ratio> <sizex> <sizey> <offsetx> <offsety>
//	<marker> <color> <size> <x> <y>
//
// When several f rows are present the last one wins. A relative image name
// is resolved against dir, a local directory or an s3:// or azure:// prefix.
func ParseMapFile(r io.Reader, dir string) (*Map, []Deco, error) {
	var (
		sitemap *Map
		decos   []Deco
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if fields[0] == "f" {
			if len(fields) != 7 {
				return nil, nil, fmt.Errorf("%w: line %d: map row needs 7 fields, got %d", ErrInvalidMapFile, lineNo, len(fields))
			}
			nums, err := parseFloats(fields[2:])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d: %w", ErrInvalidMapFile, lineNo, err)
			}
			sitemap = &Map{
				Marker:  fields[0],
				File:    imagePath(dir, fields[1]),
				Ratio:   nums[0],
				SizeX:   nums[1],
				SizeY:   nums[2],
				OffsetX: nums[3],
				OffsetY: nums[4],
			}
			continue
		}

		if len(fields) != 5 {
			return nil, nil, fmt.Errorf("%w: line %d: decoration row needs 5 fields, got %d", ErrInvalidMapFile, lineNo, len(fields))
		}
		nums, err := parseFloats(fields[2:])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %w", ErrInvalidMapFile, lineNo, err)
		}
		decos = append(decos, Deco{
			Marker: fields[0],
			Color:  fields[1],
			Size:   nums[0],
			X:      nums[1],
			Y:      nums[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read map file: %w", err)
	}
	return sitemap, decos, nil
}

func imagePath(dir, name string) string {
	switch {
	case filepath.IsAbs(name), strings.Contains(name, "://"):
		return name
	case strings.Contains(dir, "://"):
		return strings.TrimSuffix(dir, "/") + "/" + name
	default:
		return filepath.Join(dir, name)
	}
}

func parseFloats(tokens []string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Checkpoint is a named pose of the robot circuit.
type Checkpoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	W    float64 `json:"w"`
}

// Circuit is the theoretical path of a robot.
type Circuit struct {
	Coordinates []Checkpoint `json:"coordinates"`
	Points      []string     `json:"points"`
}

// ParseCircuit decodes a circuit and checks that every point names a
// checkpoint.
func ParseCircuit(r io.Reader) (*Circuit, error) {
	var c Circuit
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCircuit, err)
	}

	names := make(map[string]bool, len(c.Coordinates))
	for _, cp := range c.Coordinates {
		names[cp.Name] = true
	}
	for _, p := range c.Points {
		if !names[p] {
			return nil, fmt.Errorf("%w: point %q has no coordinates", ErrInvalidCircuit, p)
		}
	}
	return &c, nil
}

// Polygon returns the checkpoint coordinates in file order.
func (c *Circuit) Polygon() (xs, ys []float64) {
	xs = make([]float64, len(c.Coordinates))
	ys = make([]float64, len(c.Coordinates))
	for i, cp := range c.Coordinates {
		xs[i] = cp.X
		ys[i] = cp.Y
	}
	return xs, ys
}
