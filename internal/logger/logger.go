// Package logger — логирование с префиксом сервиса и уровнями. Запись асинхронная:
// вызов никогда не блокирует обработчик, при переполнении буфера строка теряется.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const asyncBufferSize = 8192

// Level — минимальный уровень, который попадает в вывод.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel понимает debug/trace, info, warn/warning, error. Неизвестное — info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	prefix   atomic.Value // string
	minLevel atomic.Int32
	out      = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	ch       chan string
	flushReq chan chan struct{}
	once     sync.Once
	dropped  atomic.Int64
)

func init() {
	prefix.Store("")
	minLevel.Store(int32(ParseLevel(os.Getenv("LOG_LEVEL"))))
}

func startWorker() {
	ch = make(chan string, asyncBufferSize)
	flushReq = make(chan chan struct{})
	go func() {
		for {
			select {
			case msg := <-ch:
				out.Print(msg)
			case done := <-flushReq:
				for {
					select {
					case msg := <-ch:
						out.Print(msg)
						continue
					default:
					}
					break
				}
				close(done)
			}
		}
	}()
}

func enqueue(lvl Level, msg string) {
	if lvl < Level(minLevel.Load()) {
		return
	}
	once.Do(startWorker)
	select {
	case ch <- msg:
	default:
		dropped.Add(1)
	}
}

// SetPrefix задаёт имя сервиса для всех последующих строк ("api", "push").
func SetPrefix(p string) { prefix.Store(p) }

// SetLevel меняет минимальный уровень (по умолчанию берётся из LOG_LEVEL).
func SetLevel(l Level) { minLevel.Store(int32(l)) }

// SetOutput перенаправляет вывод (тесты, файл). Вызывать до начала активного логирования.
func SetOutput(w io.Writer) { out.SetOutput(w) }

// Flush дожидается записи всего, что уже поставлено в очередь.
func Flush() {
	once.Do(startWorker)
	done := make(chan struct{})
	flushReq <- done
	<-done
}

// Dropped — сколько строк потеряно из-за переполнения буфера.
func Dropped() int64 { return dropped.Load() }

func tag(lvl string) string {
	p, _ := prefix.Load().(string)
	if p == "" {
		return lvl + " "
	}
	return "[" + p + "] " + lvl + " "
}

func Debugf(format string, v ...any) { enqueue(LevelDebug, tag("DEBUG")+fmt.Sprintf(format, v...)) }

func Info(v ...any) { enqueue(LevelInfo, tag("INFO")+fmt.Sprint(v...)) }

func Infof(format string, v ...any) { enqueue(LevelInfo, tag("INFO")+fmt.Sprintf(format, v...)) }

func Warnf(format string, v ...any) { enqueue(LevelWarn, tag("WARN")+fmt.Sprintf(format, v...)) }

func Error(v ...any) { enqueue(LevelError, tag("ERROR")+fmt.Sprint(v...)) }

func Errorf(format string, v ...any) { enqueue(LevelError, tag("ERROR")+fmt.Sprintf(format, v...)) }

// LogDuration пишет имя операции и длительность. На уровне info — только медленные (>=100ms).
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	if Level(minLevel.Load()) == LevelDebug || elapsed >= 100*time.Millisecond {
		enqueue(LevelInfo, fmt.Sprintf("%sfn=%s duration_ms=%d", tag("INFO"), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration: defer logger.DeferLogDuration("profile.Get", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
