package queue

// Queue names. Each logical queue holds one task type.
const (
	QueueMint      = "mint"
	QueueResolve   = "resolve-attestator"
	QueueReconcile = "cron-reconcile"
)

// Edge says that completing a task on From may enqueue work on To.
type Edge struct {
	From string
	To   string
}

// Topology is the static description of the job DAG, read once at startup:
// mint → resolve-attestator ← cron-reconcile.
type Topology struct {
	// Queues maps queue name to processing weight.
	Queues map[string]int
	// TaskQueue maps task type to the queue it runs on.
	TaskQueue map[string]string
	Edges     []Edge
}

// DefaultTopology returns the queue layout of the minting pipeline.
func DefaultTopology() Topology {
	return Topology{
		Queues: map[string]int{
			QueueMint:      3,
			QueueResolve:   2,
			QueueReconcile: 1,
		},
		TaskQueue: map[string]string{
			TypeMintDAT:           QueueMint,
			TypeResolveAttestator: QueueResolve,
			TypeReconcile:         QueueReconcile,
		},
		Edges: []Edge{
			{From: QueueMint, To: QueueResolve},
			{From: QueueReconcile, To: QueueResolve},
		},
	}
}
