package portal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind is the closed set of portal shapes.
type Kind string

const (
	KindPoint Kind = "POINT"
	KindGate  Kind = "GATE"
)

// ParseKind normalizes a stored portal kind. Unknown values fall back to POINT.
func ParseKind(s string) Kind {
	if Kind(strings.ToUpper(strings.TrimSpace(s))) == KindGate {
		return KindGate
	}
	return KindPoint
}

// Box is the axis-aligned bounding volume of a GATE portal.
type Box struct {
	MinX int `yaml:"min_x"`
	MinY int `yaml:"min_y"`
	MinZ int `yaml:"min_z"`
	MaxX int `yaml:"max_x"`
	MaxY int `yaml:"max_y"`
	MaxZ int `yaml:"max_z"`
}

// Contains reports whether the point lies within the box, bounds inclusive
// on all six faces.
func (b Box) Contains(x, y, z int) bool {
	return x >= b.MinX && x <= b.MaxX &&
		y >= b.MinY && y <= b.MaxY &&
		z >= b.MinZ && z <= b.MaxZ
}

// Record is one placed travel point. At most one of DestWorld (a managed
// world UUID) and DestServerWorld (an external world name) is set; a record
// with neither is an unbound portal.
type Record struct {
	UUID            string    `yaml:"-"` // aggregate map key
	World           string    `yaml:"world"` // placement world storage directory name
	X               int       `yaml:"x"`
	Y               int       `yaml:"y"`
	Z               int       `yaml:"z"`
	Kind            Kind      `yaml:"kind"`
	Box             *Box      `yaml:"box,omitempty"`
	DestWorld       string    `yaml:"dest_world,omitempty"`
	DestServerWorld string    `yaml:"dest_server_world,omitempty"`
	Visible         bool      `yaml:"visible"`
	ParticleColor   string    `yaml:"particle_color,omitempty"`
	Owner           string    `yaml:"owner,omitempty"`
	CreatedAt       time.Time `yaml:"created_at,omitempty"`
	DisplayID       string    `yaml:"display_id,omitempty"`
}

// IsBound reports whether the portal has any destination.
func (r *Record) IsBound() bool {
	return r.DestWorld != "" || r.DestServerWorld != ""
}

// ClearDestination demotes the portal to unbound.
func (r *Record) ClearDestination() {
	r.DestWorld = ""
	r.DestServerWorld = ""
}

// rawRecord covers every historical on-disk encoding of a portal entry.
// Current files use explicit x/y/z fields; older files nested the placement
// under a location map, and the oldest serialized it as a single string.
type rawRecord struct {
	World           string    `yaml:"world"`
	X               *int      `yaml:"x"`
	Y               *int      `yaml:"y"`
	Z               *int      `yaml:"z"`
	Location        yaml.Node `yaml:"location"`
	Kind            string    `yaml:"kind"`
	Box             *Box      `yaml:"box"`
	DestWorld       string    `yaml:"dest_world"`
	DestServerWorld string    `yaml:"dest_server_world"`
	Visible         *bool     `yaml:"visible"`
	ParticleColor   string    `yaml:"particle_color"`
	Owner           string    `yaml:"owner"`
	CreatedAt       time.Time `yaml:"created_at"`
	DisplayID       string    `yaml:"display_id"`
}

type rawLocation struct {
	World string  `yaml:"world"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
}

// resolve converts a raw entry into a Record, trying each location encoding
// in order: explicit fields, nested map, serialized string.
func (raw *rawRecord) resolve(id string) (*Record, error) {
	rec := &Record{
		UUID:            id,
		World:           raw.World,
		Kind:            ParseKind(raw.Kind),
		Box:             raw.Box,
		DestWorld:       raw.DestWorld,
		DestServerWorld: raw.DestServerWorld,
		ParticleColor:   raw.ParticleColor,
		Owner:           raw.Owner,
		CreatedAt:       raw.CreatedAt,
		DisplayID:       raw.DisplayID,
		Visible:         true,
	}
	if raw.Visible != nil {
		rec.Visible = *raw.Visible
	}

	switch {
	case raw.X != nil && raw.Y != nil && raw.Z != nil:
		rec.X, rec.Y, rec.Z = *raw.X, *raw.Y, *raw.Z

	case raw.Location.Kind == yaml.MappingNode:
		var loc rawLocation
		if err := raw.Location.Decode(&loc); err != nil {
			return nil, fmt.Errorf("decode location map: %w", err)
		}
		rec.X, rec.Y, rec.Z = int(loc.X), int(loc.Y), int(loc.Z)
		if rec.World == "" {
			rec.World = loc.World
		}

	case raw.Location.Kind == yaml.ScalarNode && raw.Location.Value != "":
		world, x, y, z, err := parseLocationString(raw.Location.Value)
		if err != nil {
			return nil, err
		}
		rec.X, rec.Y, rec.Z = x, y, z
		if rec.World == "" {
			rec.World = world
		}

	default:
		return nil, fmt.Errorf("no readable location encoding")
	}

	if rec.World == "" {
		return nil, fmt.Errorf("missing placement world")
	}
	if rec.Kind != KindGate {
		rec.Box = nil
	}
	// A portal cannot point at a managed world and an external one at once;
	// the managed destination wins.
	if rec.DestWorld != "" {
		rec.DestServerWorld = ""
	}
	return rec, nil
}

// parseLocationString decodes the oldest serialized form
// "world,x,y,z" (trailing components such as yaw/pitch are ignored).
func parseLocationString(s string) (world string, x, y, z int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) < 4 {
		return "", 0, 0, 0, fmt.Errorf("serialized location %q has %d components, want at least 4", s, len(parts))
	}
	world = strings.TrimSpace(parts[0])
	coords := make([]int, 3)
	for i := 0; i < 3; i++ {
		f, perr := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if perr != nil {
			return "", 0, 0, 0, fmt.Errorf("serialized location %q: %w", s, perr)
		}
		coords[i] = int(f)
	}
	return world, coords[0], coords[1], coords[2], nil
}
