// Package workerpool provides a small shared pool of workers used to
// race independent oracle queries. Tasks are grouped into rooms; a room
// collects the results of its own tasks without blocking other rooms.
package workerpool

import (
	"runtime"
	"sync"
)

type Pool struct {
	config    Config
	taskQueue chan task
	closeOnce sync.Once
}

type Config struct {
	// WorkerCount defaults to 3x NumCPU. Oracle queries are I/O bound,
	// so more workers than cores is the norm.
	WorkerCount int
	// GlobalBuffer bounds the number of queued tasks across all rooms.
	GlobalBuffer int
}

// Room groups tasks whose results belong together, e.g. the 256 guesses
// for one byte position.
type Room struct {
	resultChan chan interface{}
	wg         sync.WaitGroup
	pool       *Pool
}

type task struct {
	run  func() interface{}
	room *Room
}

func New(config Config) *Pool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU() * 3
	}
	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 1024
	}

	p := &Pool{
		config:    config,
		taskQueue: make(chan task, config.GlobalBuffer),
	}
	for i := 0; i < config.WorkerCount; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for t := range p.taskQueue {
		t.room.resultChan <- t.run()
		t.room.wg.Done()
	}
}

// Close stops the workers once queued tasks have drained. Rooms must not
// submit after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.taskQueue) })
}

// NewRoom creates a room whose result buffer can hold size results, so
// tasks never block on delivery as long as at most size are submitted
// between collections.
func (p *Pool) NewRoom(size int) *Room {
	return &Room{
		resultChan: make(chan interface{}, size),
		pool:       p,
	}
}

// Submit queues a task. Blocks when the global buffer is full.
func (r *Room) Submit(job func() interface{}) {
	r.wg.Add(1)
	r.pool.taskQueue <- task{run: job, room: r}
}

// Collect waits for every submitted task and returns their results in
// completion order. The room can be reused afterwards.
func (r *Room) Collect() []interface{} {
	r.wg.Wait()
	results := make([]interface{}, 0, len(r.resultChan))
	for {
		select {
		case res := <-r.resultChan:
			results = append(results, res)
		default:
			return results
		}
	}
}
