// Package logflags routes component debug logging. Components are enabled
// by name through Setup; each component gets its own logrus entry tagged
// with a layer field.
package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

var evaluator = false
var parser = false
var repl = false

func makeLogger(flag bool, level logrus.Level, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.Out = colorable.NewColorableStderr()
	logger.Level = level
	if flag {
		logger.Level = logrus.DebugLevel
	}
	return logger.WithFields(fields)
}

// Evaluator returns true if condition evaluation should log each step.
func Evaluator() bool {
	return evaluator
}

// EvaluatorLogger returns a logger for condition evaluation. Its Info
// level is always emitted: the evaluation trace is an observability aid,
// not debug output.
func EvaluatorLogger() *logrus.Entry {
	return makeLogger(evaluator, logrus.InfoLevel, logrus.Fields{"layer": "proc", "kind": "eval"})
}

// Parser returns true if the expression compiler should log.
func Parser() bool {
	return parser
}

// ParserLogger returns a logger for the expression compiler.
func ParserLogger() *logrus.Entry {
	return makeLogger(parser, logrus.PanicLevel, logrus.Fields{"layer": "expr"})
}

// Repl returns true if the interactive front-end should log.
func Repl() bool {
	return repl
}

// ReplLogger returns a logger for the interactive front-end.
func ReplLogger() *logrus.Entry {
	return makeLogger(repl, logrus.PanicLevel, logrus.Fields{"layer": "terminal"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup enables component logging based on the contents of logstr, a comma
// separated list of component names.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "evaluator"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "evaluator":
			evaluator = true
		case "parser":
			parser = true
		case "repl":
			repl = true
		}
	}
	return nil
}
