package logging

import (
	"go.uber.org/zap"
)

// Logger is the structured logger every PATHFINDER component accepts at
// construction. It is a thin, named wrapper over a zap.SugaredLogger so call
// sites never depend on zap directly.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
}

type impl struct {
	sugar *zap.SugaredLogger
}

// NewLogger constructs a console-encoded, INFO-level logger writing to
// stderr, named name.
func NewLogger(name string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	z := zap.Must(cfg.Build())
	return FromZapCompatible(z.Sugar().Named(name))
}

// FromZapCompatible wraps an already-constructed zap.SugaredLogger.
func FromZapCompatible(z *zap.SugaredLogger) Logger {
	return &impl{sugar: z}
}

func (i *impl) Debug(args ...interface{})                   { i.sugar.Debug(args...) }
func (i *impl) Debugf(template string, args ...interface{}) { i.sugar.Debugf(template, args...) }
func (i *impl) Debugw(msg string, kv ...interface{})        { i.sugar.Debugw(msg, kv...) }
func (i *impl) Info(args ...interface{})                    { i.sugar.Info(args...) }
func (i *impl) Infof(template string, args ...interface{})  { i.sugar.Infof(template, args...) }
func (i *impl) Infow(msg string, kv ...interface{})         { i.sugar.Infow(msg, kv...) }
func (i *impl) Warn(args ...interface{})                    { i.sugar.Warn(args...) }
func (i *impl) Warnf(template string, args ...interface{})  { i.sugar.Warnf(template, args...) }
func (i *impl) Warnw(msg string, kv ...interface{})         { i.sugar.Warnw(msg, kv...) }
func (i *impl) Error(args ...interface{})                   { i.sugar.Error(args...) }
func (i *impl) Errorf(template string, args ...interface{}) { i.sugar.Errorf(template, args...) }
func (i *impl) Errorw(msg string, kv ...interface{})        { i.sugar.Errorw(msg, kv...) }
func (i *impl) Named(name string) Logger                    { return FromZapCompatible(i.sugar.Named(name)) }

// NewTestLogger returns a debug-level Logger suitable for test output.
func NewTestLogger() Logger {
	z := zap.Must(zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Encoding:          "console",
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		EncoderConfig:     zap.NewDevelopmentEncoderConfig(),
	}.Build())
	return FromZapCompatible(z.Sugar())
}
