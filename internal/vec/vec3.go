package vec

import "fmt"

// Vec3 представляет позицию блока в мире (целочисленные координаты X, Y, Z).
// Y вертикальная ось.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ChunkSize размер кубического чанка по каждой оси
const ChunkSize = 16

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Offset возвращает соседнюю позицию в указанном направлении
func (v Vec3) Offset(d Direction) Vec3 {
	return v.Add(d.Offset())
}

// Up возвращает позицию над блоком
func (v Vec3) Up() Vec3 {
	return Vec3{X: v.X, Y: v.Y + 1, Z: v.Z}
}

// Down возвращает позицию под блоком
func (v Vec3) Down() Vec3 {
	return Vec3{X: v.X, Y: v.Y - 1, Z: v.Z}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ToVec2 возвращает координаты колонки (X, Z)
func (v Vec3) ToVec2() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}

// ChunkCoords преобразует мировые координаты в координаты чанка.
// Арифметический сдвиг даёт деление с округлением вниз и для отрицательных значений.
func (v Vec3) ChunkCoords() Vec3 {
	return Vec3{X: v.X >> 4, Y: v.Y >> 4, Z: v.Z >> 4}
}

// LocalInChunk возвращает локальные координаты внутри чанка (0..15)
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: v.X & 0xF, Y: v.Y & 0xF, Z: v.Z & 0xF}
}

// ChunkOrigin возвращает мировую позицию угла чанка с координатами v
func (v Vec3) ChunkOrigin() Vec3 {
	return Vec3{X: v.X << 4, Y: v.Y << 4, Z: v.Z << 4}
}

// Less задаёт полный порядок (Y, Z, X); используется для детерминированного обхода
func (v Vec3) Less(other Vec3) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	if v.Z != other.Z {
		return v.Z < other.Z
	}
	return v.X < other.X
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}
