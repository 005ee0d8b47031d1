package main

import (
	"context"
	"sync"

	"github.com/icexin/chunkmesh/mesh"
)

// Baker resolves a chunk into something the mesher can read.
type Baker interface {
	Bake(c *Chunk) *Snapshot
}

// MeshJob asks for the model of one chunk.
type MeshJob struct {
	Chunk *Chunk
}

// MeshResult is a finished job. Model is nil when the chunk has no
// visible face or when Err is set.
type MeshResult struct {
	Id      Vec3
	Version int64
	Model   *mesh.Model
	Faces   int
	Err     error
}

// MeshPool bakes and meshes chunks on a fixed set of goroutines.
type MeshPool struct {
	jobQueue chan MeshJob
	results  chan MeshResult
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	baker    Baker
	mesher   *mesh.Mesher
	factory  mesh.Factory
	registry mesh.Registry
}

func NewMeshPool(workers, queueSize int, baker Baker, mesher *mesh.Mesher, factory mesh.Factory, registry mesh.Registry) *MeshPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &MeshPool{
		jobQueue: make(chan MeshJob, queueSize),
		results:  make(chan MeshResult, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
		baker:    baker,
		mesher:   mesher,
		factory:  factory,
		registry: registry,
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

// Submit queues job and reports false if the queue is full.
func (p *MeshPool) Submit(job MeshJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitBlocking waits for room in the queue.
func (p *MeshPool) SubmitBlocking(ctx context.Context, job MeshJob) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results delivers one result per job. It must be drained or workers stall.
func (p *MeshPool) Results() <-chan MeshResult {
	return p.results
}

func (p *MeshPool) QueueLen() int {
	return len(p.jobQueue)
}

func (p *MeshPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			result := p.build(job)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				if result.Model != nil {
					result.Model.Release()
				}
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *MeshPool) build(job MeshJob) MeshResult {
	snap := p.baker.Bake(job.Chunk)
	result := MeshResult{
		Id:      snap.Id(),
		Version: snap.Version(),
		Faces:   snap.Faces(),
	}
	result.Model, result.Err = p.mesher.Build(p.factory, snap, p.registry)
	return result
}

// Shutdown stops the workers. Queued jobs are dropped.
func (p *MeshPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
