package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации ("debug", "INFO", ...)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

// sinks - общие приёмники, которые разделяют логгер и его компонентные потомки
type sinks struct {
	mu              sync.RWMutex
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// Logger представляет логгер компонента
type Logger struct {
	component string
	out       *sinks
}

// logDir каталог для файлов логов
var logDir = "logs"

// SetLogDir меняет каталог, в котором создаются файлы логов
func SetLogDir(dir string) {
	logDir = dir
}

// NewLogger создаёт логгер с консольным выводом и файлом logs/<component>_<ts>.log
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	return &Logger{
		component: component,
		out: &sinks{
			consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
			fileLogger:      log.New(file, "", log.LstdFlags|log.Lmicroseconds),
			file:            file,
			minConsoleLevel: INFO,
			minFileLevel:    TRACE,
		},
	}, nil
}

// NewConsoleLogger создаёт логгер без файла, пишущий в w
func NewConsoleLogger(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		out: &sinks{
			consoleLogger:   log.New(w, "", log.LstdFlags),
			minConsoleLevel: INFO,
			minFileLevel:    TRACE,
		},
	}
}

// WithComponent возвращает логгер, пишущий в те же приёмники с другим префиксом
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component, out: l.out}
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// SetLevels задаёт минимальные уровни для консоли и файла
func (l *Logger) SetLevels(consoleLevel, fileLevel LogLevel) {
	l.out.mu.Lock()
	l.out.minConsoleLevel = consoleLevel
	l.out.minFileLevel = fileLevel
	l.out.mu.Unlock()
}

// Enabled сообщает, будет ли сообщение уровня level куда-либо записано
func (l *Logger) Enabled(level LogLevel) bool {
	l.out.mu.RLock()
	defer l.out.mu.RUnlock()
	if level >= l.out.minConsoleLevel {
		return true
	}
	return l.out.fileLogger != nil && level >= l.out.minFileLevel
}

// Close закрывает файл логов (если он есть)
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file == nil {
		return nil
	}
	err := l.out.file.Close()
	l.out.file = nil
	l.out.fileLogger = nil
	return err
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.write(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.write(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.write(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.write(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.write(ERROR, format, args...) }

func (l *Logger) write(level LogLevel, format string, args ...interface{}) {
	l.out.mu.RLock()
	defer l.out.mu.RUnlock()

	toConsole := level >= l.out.minConsoleLevel
	toFile := l.out.fileLogger != nil && level >= l.out.minFileLevel
	if !toConsole && !toFile {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if toFile {
		l.out.fileLogger.Println(message)
	}
	if toConsole {
		l.out.consoleLogger.Println(message)
	}
}

// === Глобальный логгер ===

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewConsoleLogger("server", os.Stdout)
)

// InitDefaultLogger создаёт глобальный логгер с файловым выводом
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает файл глобального логгера
func CloseDefaultLogger() {
	if err := Default().Close(); err != nil {
		log.Printf("ошибка закрытия лога: %v", err)
	}
}

// Default возвращает глобальный логгер
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLevels задаёт уровни глобального логгера и всех компонентных логгеров
func SetDefaultLevels(consoleLevel, fileLevel LogLevel) {
	Default().SetLevels(consoleLevel, fileLevel)
}

// Trace логирует сообщение уровня TRACE в глобальный логгер
func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG в глобальный логгер
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

// Info логирует сообщение уровня INFO в глобальный логгер
func Info(format string, args ...interface{}) { Default().Info(format, args...) }

// Warn логирует сообщение уровня WARN в глобальный логгер
func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

// Error логирует сообщение уровня ERROR в глобальный логгер
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
