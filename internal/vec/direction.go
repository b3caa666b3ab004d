package vec

// Direction одно из шести осевых направлений.
// North смотрит в -Z, East в +X, Up в +Y.
type Direction uint8

const (
	Down Direction = iota
	Up
	North
	South
	West
	East
)

var directionOffsets = [...]Vec3{
	Down:  {X: 0, Y: -1, Z: 0},
	Up:    {X: 0, Y: 1, Z: 0},
	North: {X: 0, Y: 0, Z: -1},
	South: {X: 0, Y: 0, Z: 1},
	West:  {X: -1, Y: 0, Z: 0},
	East:  {X: 1, Y: 0, Z: 0},
}

var directionNames = [...]string{
	Down:  "down",
	Up:    "up",
	North: "north",
	South: "south",
	West:  "west",
	East:  "east",
}

// Directions возвращает все шесть направлений в порядке Down, Up, North, South, West, East
func Directions() []Direction {
	return []Direction{Down, Up, North, South, West, East}
}

// HorizontalDirections возвращает горизонтальные направления (без Up/Down)
func HorizontalDirections() []Direction {
	return []Direction{North, South, West, East}
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// Offset возвращает единичный вектор направления
func (d Direction) Offset() Vec3 {
	if int(d) >= len(directionOffsets) {
		return Vec3{}
	}
	return directionOffsets[d]
}

// IsHorizontal сообщает, лежит ли направление в горизонтальной плоскости
func (d Direction) IsHorizontal() bool {
	return d >= North && d <= East
}

func (d Direction) String() string {
	if int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// ParseDirection разбирает имя направления ("north", "up", ...)
func ParseDirection(name string) (Direction, bool) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), true
		}
	}
	return 0, false
}
