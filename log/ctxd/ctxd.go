// Package ctxd adapts a github.com/bool64/ctxd logger.
package ctxd

import (
	"context"
	"sort"

	"github.com/bool64/ctxd"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = Logger{}

// Logger forwards to L with Ctx (nil => context.Background()), so loggers
// that read fields from context still work.
type Logger struct {
	L   ctxd.Logger
	Ctx context.Context
}

func (l Logger) Debug(msg string, f swrcache.Fields) { l.L.Debug(l.ctx(), msg, kv(f)...) }
func (l Logger) Info(msg string, f swrcache.Fields)  { l.L.Info(l.ctx(), msg, kv(f)...) }
func (l Logger) Warn(msg string, f swrcache.Fields)  { l.L.Warn(l.ctx(), msg, kv(f)...) }
func (l Logger) Error(msg string, f swrcache.Fields) { l.L.Error(l.ctx(), msg, kv(f)...) }

func (l Logger) ctx() context.Context {
	if l.Ctx == nil {
		return context.Background()
	}
	return l.Ctx
}

func kv(f swrcache.Fields) []interface{} {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, 2*len(f))
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
