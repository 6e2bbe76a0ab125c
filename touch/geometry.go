package touch

import "fmt"

type OriginPosition byte

const (
	ORIGIN_LOWER_LEFT  OriginPosition = 1
	ORIGIN_LOWER_RIGHT OriginPosition = 2
	ORIGIN_UPPER_LEFT  OriginPosition = 3
	ORIGIN_UPPER_RIGHT OriginPosition = 4
)

func (o OriginPosition) String() string {
	switch o {
	case ORIGIN_LOWER_LEFT:
		return "LOWER LEFT"
	case ORIGIN_LOWER_RIGHT:
		return "LOWER RIGHT"
	case ORIGIN_UPPER_LEFT:
		return "UPPER LEFT"
	case ORIGIN_UPPER_RIGHT:
		return "UPPER RIGHT"
	}
	return fmt.Sprintf("Unknown origin position %02x", byte(o))
}

// TouchpadGeometry holds the per-session surface constants reported by the
// device during initialization. Immutable once populated.
type TouchpadGeometry struct {
	XSize      uint16
	YSize      uint16
	Resolution uint16
	Origin     OriginPosition
	MaxFingers uint8
	MaxWidth   uint8
}

func (g TouchpadGeometry) String() string {
	return fmt.Sprintf("Geometry %dx%d, resolution %d, origin %s, max fingers %d, max width %d",
		g.XSize, g.YSize, g.Resolution, g.Origin, g.MaxFingers, g.MaxWidth)
}

func (g TouchpadGeometry) mirrorsX() bool {
	return g.Origin == ORIGIN_LOWER_RIGHT || g.Origin == ORIGIN_UPPER_RIGHT
}

func (g TouchpadGeometry) mirrorsY() bool {
	return g.Origin == ORIGIN_LOWER_LEFT || g.Origin == ORIGIN_LOWER_RIGHT
}

// Mirror maps raw device coordinates into the host orientation, flipping each
// axis whose origin sits opposite the host's upper-left convention.
func (g TouchpadGeometry) Mirror(x, y uint16) (uint16, uint16) {
	if g.mirrorsX() {
		x = g.XSize - x
	}
	if g.mirrorsY() {
		y = g.YSize - y
	}
	return x, y
}

// SlotCount is the length of the slot tracker array; devices reporting fewer
// than two fingers still get two slots.
func (g TouchpadGeometry) SlotCount() int {
	if g.MaxFingers < 2 {
		return 2
	}
	return int(g.MaxFingers)
}
