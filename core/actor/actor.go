package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	perror "github.com/nyan233/littlegate/core/protocol/error"
)

// ErrStopActor 由Receive返回时Actor会在当前这一轮结束之后停止
var ErrStopActor = errors.New("stop actor")

// Key 唯一标识一个Actor, 同一个Key在同一时刻只会执行一轮
type Key struct {
	Kind string
	Id   string
}

func (k Key) String() string {
	return k.Kind + "/" + k.Id
}

// Receiver 是Actor的行为, 同一个Receiver的Receive永远不会被并发调用
type Receiver interface {
	Receive(ctx *Context) (interface{}, error)
}

// Stopper Receiver可以选择实现, 在Actor的goroutine退出之前调用
type Stopper interface {
	OnStop(self Key)
}

// Factory 虚拟Actor在收到第一条消息时通过Factory激活
type Factory func(key Key) (Receiver, error)

// Context 描述一轮执行
type Context struct {
	context.Context
	Self    Key
	Method  int
	Payload interface{}
	System  *System
}

type reply struct {
	result interface{}
	err    perror.LErrorDesc
}

type envelope struct {
	ctx     context.Context
	method  int
	payload interface{}
	// Send发出的消息没有回复通道
	reply chan reply
}

type cell struct {
	key      Key
	receiver Receiver
	inbox    chan envelope
	quit     chan struct{}
	stopOnce sync.Once
	// 由所在分片的锁保护
	stopped bool
	system  *System
	// prev 同一个Key上一个还没有退出的cell, 在它退出之前不会开始第一轮
	prev   *cell
	exited chan struct{}
}

func (c *cell) run() {
	defer c.system.wg.Done()
	defer c.exit()
	if c.prev != nil {
		<-c.prev.exited
		c.prev = nil
	}
	for {
		select {
		case <-c.quit:
			return
		case env := <-c.inbox:
			stop := c.turn(env)
			if stop {
				c.system.detach(c)
				return
			}
		}
	}
}

func (c *cell) turn(env envelope) (stop bool) {
	ctx := &Context{
		Context: env.ctx,
		Self:    c.key,
		Method:  env.method,
		Payload: env.payload,
		System:  c.system,
	}
	result, err := c.receive(ctx)
	if err != nil && errors.Is(err, ErrStopActor) {
		stop = true
		err = nil
	}
	var desc perror.LErrorDesc
	if err != nil {
		if !errors.As(err, &desc) {
			desc = c.system.eHandle.LWarpErrorDesc(errorhandler.ErrInternal, err.Error())
		}
		if env.reply == nil {
			c.system.logger.Warn("actor %s method %d failed: %v", c.key, env.method, desc)
		}
	}
	if env.reply != nil {
		env.reply <- reply{result: result, err: desc}
	}
	return
}

func (c *cell) receive(ctx *Context) (result interface{}, err error) {
	defer func() {
		e := recover()
		if e == nil {
			return
		}
		printStr := fmt.Sprintf("%v", e)
		var stack [4096]byte
		size := runtime.Stack(stack[:], false)
		c.system.logger.Warn("actor %s panic : %s\n%s", c.key, printStr, string(stack[:size]))
		result = nil
		err = c.system.eHandle.LWarpErrorDesc(errorhandler.ErrInternal, printStr)
	}()
	return c.receiver.Receive(ctx)
}

// exit 在Actor的goroutine中执行, 此时已经不会有新的消息进入邮箱
func (c *cell) exit() {
	for {
		select {
		case env := <-c.inbox:
			if env.reply != nil {
				env.reply <- reply{err: c.system.unreachable(c.key, "actor stopped")}
			}
		default:
			if stopper, ok := c.receiver.(Stopper); ok {
				func() {
					defer func() {
						if e := recover(); e != nil {
							c.system.logger.Warn("actor %s OnStop panic : %v", c.key, e)
						}
					}()
					stopper.OnStop(c.key)
				}()
			}
			c.system.forget(c)
			close(c.exited)
			c.system.logger.Debug("actor %s stopped", c.key)
			return
		}
	}
}

func (c *cell) stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
}
