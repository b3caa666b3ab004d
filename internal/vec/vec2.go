package vec

import "math"

// Vec2 координаты колонки мира: X и Z мировой сетки (поле Y хранит Z).
// Используется генератором рельефа для карт высот.
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует координаты колонки в координаты колонки чанков
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Y: v.Y >> 4} // Деление на 16
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Y: v.Y & 0xF} // Модуль 16
}

// DistanceTo вычисляет расстояние до другой колонки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// AtHeight возвращает позицию блока в колонке на высоте y
func (v Vec2) AtHeight(y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Y}
}
