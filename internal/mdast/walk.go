package mdast

// Action tells Walk how to proceed after visiting a node.
type Action int

const (
	// Continue descends into the node's children.
	Continue Action = iota
	// SkipChildren moves on to the node's next sibling.
	SkipChildren
	// ReplaceAndSkip swaps the visited node for the returned one and moves
	// on to the next sibling without entering the replacement.
	ReplaceAndSkip
)

// Visitor is called for every node in pre-order. parent is nil for the node
// Walk started at.
type Visitor func(n Node, parent Parent, index int) (Action, Node)

// Walk traverses the tree rooted at n depth first, left to right. The start
// node cannot be replaced; ReplaceAndSkip on it acts as SkipChildren. A
// visitor may change its parent's child list; Walk rereads it before each
// step.
func Walk(n Node, visit Visitor) {
	if act, _ := visit(n, nil, 0); act != Continue {
		return
	}
	walkChildren(n, visit)
}

func walkChildren(n Node, visit Visitor) {
	p, ok := n.(Parent)
	if !ok {
		return
	}
	for i := 0; i < len(p.Children()); i++ {
		child := p.Children()[i]
		act, repl := visit(child, p, i)
		switch act {
		case ReplaceAndSkip:
			if repl != nil {
				p.Children()[i] = repl
			}
			continue
		case SkipChildren:
			continue
		}
		walkChildren(child, visit)
	}
}
