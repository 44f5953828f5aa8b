package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/memberlist"
	"github.com/tidwall/gjson"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// swarm is the gossip module: cluster membership on memberlist plus
// replicated key/value state carrying the table catalog and the service
// registry. Lifecycle functions report failures as "Error: ..." rows
// rather than failing the command; the introspection table functions
// return real errors.
type swarm struct {
	engine *Engine
	state  *kvStore

	mu      sync.Mutex
	list    *memberlist.Memberlist
	queue   *memberlist.TransmitLimitedQueue
	nodeID  string
	name    string
	cluster string
	addr    string

	// listRef mirrors list for the broadcast queue, which sizes its
	// retransmits off the member count and must not touch mu.
	listRef atomic.Pointer[memberlist.Memberlist]
}

type nodeMeta struct {
	NodeID  string `json:"node_id"`
	Cluster string `json:"cluster"`
}

type serviceInfo struct {
	Host   string            `json:"host"`
	Port   int               `json:"port"`
	Status string            `json:"status"`
	Config map[string]string `json:"config"`
}

func loadSwarm(e *Engine) error {
	s := &swarm{engine: e, state: newKVStore()}

	e.registerScalar("swarm_start", func(args []any) (any, error) {
		host, err := stringArg("swarm_start", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("swarm_start", args, 1)
		if err != nil {
			return nil, err
		}
		cluster, err := stringArg("swarm_start", args, 2)
		if err != nil {
			return nil, err
		}

		return s.start(host, int(port), cluster, ""), nil
	})

	e.registerScalar("swarm_start_seeds", func(args []any) (any, error) {
		host, err := stringArg("swarm_start_seeds", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("swarm_start_seeds", args, 1)
		if err != nil {
			return nil, err
		}
		cluster, err := stringArg("swarm_start_seeds", args, 2)
		if err != nil {
			return nil, err
		}
		seeds, err := stringArg("swarm_start_seeds", args, 3)
		if err != nil {
			return nil, err
		}

		return s.start(host, int(port), cluster, seeds), nil
	})

	e.registerScalar("swarm_stop", func(args []any) (any, error) {
		return s.stop(), nil
	})

	e.registerScalar("swarm_set_key", func(args []any) (any, error) {
		key, err := stringArg("swarm_set_key", args, 0)
		if err != nil {
			return nil, err
		}
		value, err := stringArg("swarm_set_key", args, 1)
		if err != nil {
			return nil, err
		}

		return s.setKey(key, value), nil
	})

	e.registerScalar("swarm_delete_key", func(args []any) (any, error) {
		key, err := stringArg("swarm_delete_key", args, 0)
		if err != nil {
			return nil, err
		}

		return s.deleteKey(key), nil
	})

	e.registerScalar("swarm_register_service", func(args []any) (any, error) {
		name, err := stringArg("swarm_register_service", args, 0)
		if err != nil {
			return nil, err
		}
		host, err := stringArg("swarm_register_service", args, 1)
		if err != nil {
			return nil, err
		}
		port, err := intArg("swarm_register_service", args, 2)
		if err != nil {
			return nil, err
		}

		return s.registerService(name, host, int(port)), nil
	})

	e.registerTable("swarm_nodes", s.nodes)
	e.registerTable("swarm_services", s.services)
	e.registerTable("swarm_tables", s.tables)
	e.registerTable("swarm_config", s.configRows)

	e.onCreateTable(s.announceTable)
	e.onDropTable(s.retractTable)
	e.onClose(s.shutdown)

	return nil
}

func (s *swarm) start(host string, port int, cluster, seeds string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list != nil {
		return "Error: swarm already started"
	}

	s.nodeID = uuid.NewString()
	s.name = fmt.Sprintf("node-%s:%d", host, port)
	s.cluster = cluster
	s.addr = fmt.Sprintf("%s:%d", host, port)

	s.queue = &memberlist.TransmitLimitedQueue{
		NumNodes: func() int {
			if list := s.listRef.Load(); list != nil {
				return list.NumMembers()
			}
			return 1
		},
		RetransmitMult: 3,
	}

	meta, _ := json.Marshal(nodeMeta{NodeID: s.nodeID, Cluster: cluster})

	// The delegate runs on memberlist goroutines and during Join, which
	// happens below while mu is held. It must never take mu itself.
	cfg := memberlist.DefaultLocalConfig()
	cfg.Name = s.name
	cfg.BindAddr = host
	cfg.BindPort = port
	cfg.AdvertisePort = port
	cfg.Delegate = &delegate{state: s.state, meta: meta, queue: s.queue}
	cfg.Alive = &aliveGuard{cluster: cluster}
	cfg.GossipInterval = 100 * time.Millisecond
	cfg.PushPullInterval = 2 * time.Second
	cfg.LogOutput = os.Stderr

	list, err := memberlist.Create(cfg)
	if err != nil {
		return fmt.Sprintf("Error: starting gossip: %v", err)
	}
	s.list = list
	s.listRef.Store(list)

	// Tables created before gossip started need announcing now.
	s.engine.catalog.Range(func(_ string, tbl *Table) bool {
		s.publishTable(tbl)
		return true
	})

	if seeds == "" {
		return fmt.Sprintf("Swarm started on %s (cluster: %s)", s.addr, cluster)
	}

	peers := strings.Split(seeds, ",")
	for i := range peers {
		peers[i] = strings.TrimSpace(peers[i])
	}

	if _, err := list.Join(peers); err != nil {
		list.Shutdown()
		s.list = nil
		s.listRef.Store(nil)
		return fmt.Sprintf("Error: joining seeds: %v", err)
	}

	return fmt.Sprintf("Swarm started on %s (cluster: %s, seeds: %s)", s.addr, cluster, seeds)
}

func (s *swarm) stop() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return "Error: swarm not started"
	}

	name := s.name
	s.list.Leave(time.Second)
	s.list.Shutdown()
	s.list = nil
	s.listRef.Store(nil)

	return fmt.Sprintf("Gossip stopped for node %s", name)
}

// shutdown is the module closer; unlike stop it is quiet when gossip never
// started.
func (s *swarm) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return
	}

	s.list.Leave(time.Second)
	s.list.Shutdown()
	s.list = nil
	s.listRef.Store(nil)
}

func (s *swarm) setKey(key, value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return "Error: swarm not started"
	}

	s.broadcast(s.state.set(s.name, key, value))

	return fmt.Sprintf("Set %s = %s (propagating to cluster)", key, value)
}

func (s *swarm) deleteKey(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return "Error: swarm not started"
	}

	s.broadcast(s.state.tombstone(s.name, key))

	return fmt.Sprintf("Deleted %s (propagating to cluster)", key)
}

func (s *swarm) registerService(name, host string, port int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return "Error: swarm not started"
	}

	info, _ := json.Marshal(serviceInfo{
		Host:   host,
		Port:   port,
		Status: "running",
		Config: map[string]string{},
	})
	s.broadcast(s.state.set(s.name, "service:"+name, string(info)))

	return fmt.Sprintf("Registered service %s at %s:%d", name, host, port)
}

// announceTable publishes a table to the cluster when gossip is running.
func (s *swarm) announceTable(tbl *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return
	}

	s.publishTable(tbl)
}

// publishTable writes and broadcasts a table announcement. Callers hold mu.
func (s *swarm) publishTable(tbl *Table) {
	value, _ := json.Marshal(tbl)
	s.broadcast(s.state.set(s.name, "table:"+tbl.Name, string(value)))
}

func (s *swarm) retractTable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return
	}

	s.broadcast(s.state.tombstone(s.name, "table:"+name))
}

// broadcast queues an entry for gossip. Callers hold mu.
func (s *swarm) broadcast(e *kvEntry) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}

	s.queue.QueueBroadcast(&kvBroadcast{msg: msg, id: e.id()})
}

func (s *swarm) nodes() (wire.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return nil, fmt.Errorf("swarm not started")
	}

	dataOrigins := s.state.originsWithTables()

	members := s.list.Members()
	rows := make(wire.Rows, 0, len(members))
	for _, m := range members {
		rows = append(rows, wire.Row{
			gjson.GetBytes(m.Meta, "node_id").String(),
			m.Name,
			m.Address(),
			strconv.FormatBool(dataOrigins[m.Name]),
			stateString(m.State),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Str(1) < rows[j].Str(1)
	})

	return rows, nil
}

func (s *swarm) services() (wire.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return nil, fmt.Errorf("swarm not started")
	}

	now := time.Now().Unix()
	rows := wire.Rows{}
	for _, e := range s.state.live("service:") {
		config := gjson.Get(e.Value, "config").Raw
		if config == "" {
			config = "{}"
		}

		rows = append(rows, wire.Row{
			e.Origin,
			strings.TrimPrefix(e.Key, "service:"),
			gjson.Get(e.Value, "host").String(),
			gjson.Get(e.Value, "port").Int(),
			gjson.Get(e.Value, "status").String(),
			now - e.SetAt,
			config,
		})
	}

	return rows, nil
}

func (s *swarm) tables() (wire.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return nil, fmt.Errorf("swarm not started")
	}

	rows := wire.Rows{}
	for _, e := range s.state.live("table:") {
		rows = append(rows, wire.Row{
			e.Origin,
			strings.TrimPrefix(e.Key, "table:"),
			gjson.Get(e.Value, "approx_rows").Int(),
			gjson.Get(e.Value, "schema_hash").String(),
		})
	}

	return rows, nil
}

func (s *swarm) configRows() (wire.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return nil, fmt.Errorf("swarm not started")
	}

	return wire.Rows{
		{"cluster", s.cluster},
		{"gossip_addr", s.addr},
		{"node_id", s.nodeID},
		{"node_name", s.name},
	}, nil
}

func stateString(state memberlist.NodeStateType) string {
	switch state {
	case memberlist.StateAlive:
		return "alive"
	case memberlist.StateSuspect:
		return "suspect"
	case memberlist.StateDead:
		return "dead"
	case memberlist.StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// delegate feeds memberlist: node metadata, broadcast drain, and the
// full-state push/pull sync. It runs on memberlist goroutines and holds
// only fields that are immutable after creation.
type delegate struct {
	state *kvStore
	meta  []byte
	queue *memberlist.TransmitLimitedQueue
}

var _ memberlist.Delegate = (*delegate)(nil)

func (d *delegate) NodeMeta(limit int) []byte {
	if len(d.meta) > limit {
		return d.meta[:limit]
	}
	return d.meta
}

func (d *delegate) NotifyMsg(b []byte) {
	if len(b) == 0 {
		return
	}

	var e kvEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return
	}

	// Re-queue entries we had not seen so they keep spreading.
	if d.state.merge(&e) {
		msg := append([]byte(nil), b...)
		d.queue.QueueBroadcast(&kvBroadcast{msg: msg, id: e.id()})
	}
}

func (d *delegate) GetBroadcasts(overhead, limit int) [][]byte {
	return d.queue.GetBroadcasts(overhead, limit)
}

func (d *delegate) LocalState(join bool) []byte {
	buf, _ := json.Marshal(d.state.snapshot())
	return buf
}

func (d *delegate) MergeRemoteState(buf []byte, join bool) {
	var entries []*kvEntry
	if err := json.Unmarshal(buf, &entries); err != nil {
		return
	}

	for _, e := range entries {
		d.state.merge(e)
	}
}

// aliveGuard rejects nodes from other clusters before they reach the
// member list. Both sides of a cross-cluster join see the mismatch, so
// neither merges.
type aliveGuard struct {
	cluster string
}

var _ memberlist.AliveDelegate = (*aliveGuard)(nil)

func (g *aliveGuard) NotifyAlive(peer *memberlist.Node) error {
	cluster := gjson.GetBytes(peer.Meta, "cluster").String()
	if cluster != g.cluster {
		return fmt.Errorf("node %s belongs to cluster %q, not %q", peer.Name, cluster, g.cluster)
	}

	return nil
}

// kvBroadcast wraps one entry for the transmit queue. Newer writes to the
// same entry invalidate older queued ones.
type kvBroadcast struct {
	msg []byte
	id  string
}

var _ memberlist.Broadcast = (*kvBroadcast)(nil)

func (b *kvBroadcast) Invalidates(other memberlist.Broadcast) bool {
	o, ok := other.(*kvBroadcast)
	return ok && o.id == b.id
}

func (b *kvBroadcast) Message() []byte {
	return b.msg
}

func (b *kvBroadcast) Finished() {}
