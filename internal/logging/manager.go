package logging

import (
	"sort"
	"sync"
)

// LoggerManager раздаёт логгеры компонентов поверх глобального логгера
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости.
// Логгер пишет в приёмники глобального логгера, актуального на момент создания.
func (lm *LoggerManager) GetLogger(component string) *Logger {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай гонки
	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := Default().WithComponent(component)
	lm.loggers[component] = logger
	return logger
}

// Reset забывает выданные логгеры (после смены глобального логгера)
func (lm *LoggerManager) Reset() {
	lm.mu.Lock()
	lm.loggers = make(map[string]*Logger)
	lm.mu.Unlock()
}

// ListComponents возвращает отсортированный список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().GetLogger(component)
}

func GetSimulationLogger() *Logger {
	return GetComponentLogger("brigade")
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}

func GetBusLogger() *Logger {
	return GetComponentLogger("eventbus")
}
