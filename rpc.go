package main

import (
	"net"
	"net/rpc"
	"strings"
	"time"

	gocraft "github.com/icexin/gocraft-server/client"
	"github.com/icexin/gocraft-server/proto"
	"github.com/pkg/errors"
)

// dialTimeout is used when the config leaves the server timeout unset.
const dialTimeout = 5 * time.Second

// Remote talks to a gocraft server. The server deals in chunk columns,
// each cubic chunk keeps its own version in the store.
type Remote struct {
	client *gocraft.Client
	conn   net.Conn
	world  *World
}

func DialRemote(cfg ServerConfig, world *World) (*Remote, error) {
	addr := cfg.Addr
	if !strings.Contains(addr, ":") {
		addr += ":8421"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	r := &Remote{
		client: gocraft.NewClient(),
		conn:   conn,
		world:  world,
	}
	r.client.RegisterService("Block", &BlockService{world: world})
	r.client.Start(conn)
	Sugar.Infof("connected to %s", addr)
	return r, nil
}

// FetchChunk calls f for every server block inside chunk id. Blocks of
// other chunks in the column and types without a texture are skipped.
func (r *Remote) FetchChunk(id Vec3, f func(bid Vec3, w int)) error {
	store := r.world.store
	req := proto.FetchChunkRequest{
		P: id.X,
		Q: id.Z,
	}
	if store != nil {
		req.Version = store.GetChunkVersion(id)
	}
	rep := new(proto.FetchChunkResponse)
	err := r.client.Call("Block.FetchChunk", req, rep)
	if err == rpc.ErrShutdown {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fetch chunk %v", id)
	}
	dropped := 0
	for _, b := range rep.Blocks {
		bid := Vec3{b[0], b[1], b[2]}
		if bid.Chunkid() != id {
			continue
		}
		if b[3] != 0 && !r.known(b[3]) {
			dropped++
			continue
		}
		f(bid, b[3])
	}
	if dropped != 0 {
		Sugar.Warnf("chunk %v: dropped %d blocks of unknown type", id, dropped)
	}
	if store != nil && req.Version != rep.Version {
		if err := store.UpdateChunkVersion(id, rep.Version); err != nil {
			return errors.Wrapf(err, "save version of chunk %v", id)
		}
	}
	return nil
}

func (r *Remote) known(w int) bool {
	textures := r.world.textures
	return textures == nil || textures.Has(w)
}

func (r *Remote) UpdateBlock(id Vec3, w int) error {
	cid := id.Chunkid()
	req := &proto.UpdateBlockRequest{
		Id: r.client.ClientId,
		P:  cid.X,
		Q:  cid.Z,
		X:  id.X,
		Y:  id.Y,
		Z:  id.Z,
		W:  w,
	}
	rep := new(proto.UpdateBlockResponse)
	err := r.client.Call("Block.UpdateBlock", req, rep)
	if err == rpc.ErrShutdown {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "update block %v", id)
	}
	if store := r.world.store; store != nil {
		return store.UpdateChunkVersion(cid, rep.Version)
	}
	return nil
}

func (r *Remote) Close() error {
	return r.conn.Close()
}

// BlockService receives block edits made by other players.
type BlockService struct {
	world *World
}

func (s *BlockService) UpdateBlock(req *proto.UpdateBlockRequest, rep *proto.UpdateBlockResponse) error {
	Sugar.Debugf("rpc::UpdateBlock:%v", *req)
	bid := Vec3{req.X, req.Y, req.Z}
	if s.world.BlockChunk(bid) != nil {
		s.world.applyBlock(bid, req.W)
		return nil
	}
	// picked up when the chunk loads
	if store := s.world.store; store != nil && (req.W == 0 || s.world.textures == nil || s.world.textures.Has(req.W)) {
		return store.UpdateBlock(bid, req.W)
	}
	return nil
}
