package txn

import (
	"github.com/brindlewood/facts/internal/ave"
	"github.com/brindlewood/facts/internal/eav"
	"github.com/brindlewood/facts/internal/schema"
)

// Database is one immutable logical database value (§3, §5): a schema, the
// two indexes, and the identifier-assignment counter. Every successful
// Apply produces a new Database sharing structure with its predecessor;
// the predecessor is never mutated.
type Database struct {
	Schema  *schema.Schema
	EAV     eav.Index
	AVE     ave.Index
	NextID  int64
	TxCount int64
}

// New builds an empty database compiled against sch (§6's create(schema)).
func New(sch *schema.Schema) Database {
	return Database{
		Schema: sch,
		EAV:    eav.New(sch),
		AVE:    ave.New(sch),
		NextID: 1,
	}
}
