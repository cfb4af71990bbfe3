package session

import (
	"context"
	"sync"

	"github.com/kweinmeister/agent-design-patterns/view"
)

// Run 一次提交的结果
type Run struct {
	id   string
	gen  uint64
	done chan struct{}

	mu    sync.Mutex
	state view.State
	err   error
}

func newRun(id string, gen uint64) *Run {
	return &Run{id: id, gen: gen, done: make(chan struct{})}
}

// ID 运行标识
func (r *Run) ID() string { return r.id }

// Generation 提交代号
func (r *Run) Generation() uint64 { return r.gen }

// Done 运行结束后关闭
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait 阻塞到运行结束，返回最终状态
//
// 被更新的提交取代时返回 SUPERSEDED 错误。
func (r *Run) Wait(ctx context.Context) (view.State, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.state, r.err
	case <-ctx.Done():
		return view.State{}, ctx.Err()
	}
}

func (r *Run) resolve(state view.State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return
	default:
	}
	r.state = state
	r.err = err
	close(r.done)
}

func (r *Run) resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
