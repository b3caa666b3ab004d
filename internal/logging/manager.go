package logging

import "sync"

// componentLoggers кэширует логгеры компонентов процесса: один логгер на имя
type componentLoggers struct {
	mu     sync.Mutex
	byName map[string]*Logger
	level  LogLevel
}

var components = newComponentLoggers()

func newComponentLoggers() *componentLoggers {
	return &componentLoggers{byName: make(map[string]*Logger), level: INFO}
}

func (c *componentLoggers) get(name string) *Logger {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.byName[name]; ok {
		return l
	}
	l, err := NewLogger(name)
	if err != nil {
		// Файл не открылся: пишем только в консоль
		Warn("логгер %s без файла: %v", name, err)
		l = newConsoleLogger(name, defaultLogger.consoleLogger.Writer())
	}
	l.SetLevel(c.level)
	c.byName[name] = l
	return l
}

func (c *componentLoggers) setLevel(level LogLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.level = level
	for _, l := range c.byName {
		l.SetLevel(level)
	}
}

func (c *componentLoggers) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, l := range c.byName {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.byName = make(map[string]*Logger)
	return firstErr
}

// SetComponentLevel задаёт консольный уровень для уже созданных и будущих логгеров компонентов
func SetComponentLevel(level LogLevel) {
	components.setLevel(level)
}

// CloseComponentLoggers закрывает файлы логгеров компонентов
func CloseComponentLoggers() error {
	return components.close()
}

// GetComponentLogger возвращает общий логгер компонента
func GetComponentLogger(component string) *Logger {
	return components.get(component)
}

func GetWorldLogger() *Logger   { return GetComponentLogger("world") }
func GetBlocksLogger() *Logger  { return GetComponentLogger("blocks") }
func GetStorageLogger() *Logger { return GetComponentLogger("storage") }
func GetServerLogger() *Logger  { return GetComponentLogger("server") }
