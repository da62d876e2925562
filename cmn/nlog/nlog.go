// Package nlog - skal logger: leveled, buffered, timestamped.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

const flushIval = 10 * time.Second

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevText = [...]string{"I", "W", "E"}

type nlog struct {
	mw        sync.Mutex
	w         *bufio.Writer
	out       io.Writer
	file      *os.File
	lastFlush time.Time
}

var (
	g        nlog
	once     sync.Once
	title    string
	toStderr = true
)

func initOut() {
	g.out = os.Stderr
	g.w = bufio.NewWriterSize(g.out, 64*1024)
	g.lastFlush = time.Now()
}

// SetLogDir redirects output to a file under dir; stderr remains the sink
// for warnings and errors.
func SetLogDir(dir string) error {
	once.Do(initOut)
	fname := filepath.Join(dir, sname()+".log")
	file, err := os.OpenFile(fname, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	g.mw.Lock()
	g.file = file
	g.out = file
	g.w = bufio.NewWriterSize(file, 64*1024)
	toStderr = false
	g.mw.Unlock()
	return nil
}

func SetTitle(s string) { title = s }

func sname() string {
	if title != "" {
		return title
	}
	return filepath.Base(os.Args[0]) + "." + strconv.Itoa(os.Getpid())
}

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth+1, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 1, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 1, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 1, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 1, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth+1, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 1, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 1, format, args...) }

func log(sev severity, depth int, format string, args ...any) {
	once.Do(initOut)
	var body string
	if format == "" {
		body = fmt.Sprintln(args...)
	} else {
		body = fmt.Sprintf(format, args...)
		if len(body) == 0 || body[len(body)-1] != '\n' {
			body += "\n"
		}
	}
	line := header(sev, depth+1) + body

	g.mw.Lock()
	g.w.WriteString(line)
	if sev >= sevWarn && !toStderr {
		os.Stderr.WriteString(line)
	}
	if sev >= sevErr || time.Since(g.lastFlush) > flushIval {
		g.w.Flush()
		g.lastFlush = time.Now()
	}
	g.mw.Unlock()
}

func header(sev severity, depth int) string {
	_, fn, ln, ok := runtime.Caller(depth + 1)
	if !ok {
		fn, ln = "???", 0
	}
	now := time.Now()
	return fmt.Sprintf("%s %02d:%02d:%02d.%06d %s:%d ",
		sevText[sev], now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1000, filepath.Base(fn), ln)
}

// Flush drains buffered output; with exit=true also syncs and closes the
// log file, if any.
func Flush(exit ...bool) {
	once.Do(initOut)
	ex := len(exit) > 0 && exit[0]
	g.mw.Lock()
	g.w.Flush()
	g.lastFlush = time.Now()
	if ex && g.file != nil {
		g.file.Sync()
		g.file.Close()
		g.file = nil
		g.out = os.Stderr
		g.w = bufio.NewWriterSize(g.out, 64*1024)
		toStderr = true
	}
	g.mw.Unlock()
}
