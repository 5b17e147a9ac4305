package cluster

import "fmt"

// NodeIdentity is the logical name this process answers to. It is set once at
// startup and only read afterwards, so it is safe to share across requests.
type NodeIdentity struct {
	Name string
}

// Identify returns the greeting peers receive from this node's
// /helloFromNode endpoint.
func (n NodeIdentity) Identify() string {
	return fmt.Sprintf("Hello from '%s'", n.Name)
}
