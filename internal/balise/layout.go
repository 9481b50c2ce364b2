package balise

import (
	"strconv"

	"example.com/balisegate/internal/bits"
)

// Element is one entry of a packet layout: a Slot, an *Iteration or an
// *Optional. Layouts are built once and shared read-only.
type Element interface {
	decode(r *bits.Reader, sc *scope) (node, error)
	build(b *builder, sc *scope, k *keyer, prefix string) node
}

// node is the decoded counterpart of an Element.
type node interface {
	encode(e *encoder, sc *scope)
	clone() node
}

// Slot places a variable in a layout with its default value.
type Slot struct {
	Var     *Variable
	Default uint64
}

// Var is shorthand for a Slot.
func Var(v *Variable, def uint64) Slot {
	return Slot{Var: v, Default: def}
}

func (s Slot) decode(r *bits.Reader, _ *scope) (node, error) {
	v, err := r.Read(s.Var.Width)
	if err != nil {
		return nil, err
	}
	return &Field{Var: s.Var, value: v}, nil
}

func (s Slot) build(b *builder, _ *scope, k *keyer, prefix string) node {
	key := prefix + k.next(s.Var.Name)
	if v, ok := b.value(key); ok {
		return newField(s.Var, v)
	}
	return newField(s.Var, s.Default)
}

// Iteration is a self-counting repeating block: a count field followed by
// that many instances of Body. Body may contain further iterations.
type Iteration struct {
	Name     string
	Count    *Variable
	Body     []Element
	Defaults int
}

// Repeat builds an Iteration named after its count variable.
func Repeat(count *Variable, defaults int, body ...Element) *Iteration {
	return &Iteration{Count: count, Body: body, Defaults: defaults}
}

func (it *Iteration) name() string {
	if it.Name != "" {
		return it.Name
	}
	return it.Count.Name
}

func (it *Iteration) decode(r *bits.Reader, sc *scope) (node, error) {
	n, err := r.Read(it.Count.Width)
	if err != nil {
		return nil, err
	}
	g := &Group{Iter: it, count: &Field{Var: it.Count, value: n}}
	g.Instances = make([][]node, 0, n)
	for i := uint64(0); i < n; i++ {
		inst, err := decodeNodes(it.Body, r, sc)
		if err != nil {
			return nil, err
		}
		g.Instances = append(g.Instances, inst)
	}
	return g, nil
}

func (it *Iteration) build(b *builder, sc *scope, k *keyer, prefix string) node {
	key := prefix + k.next(it.name())
	n := uint64(it.Defaults)
	if v, ok := b.value(key); ok {
		n = v & it.Count.Max()
	}
	g := &Group{Iter: it, count: newField(it.Count, n)}
	g.Instances = make([][]node, 0, n)
	for i := uint64(0); i < n; i++ {
		g.Instances = append(g.Instances, buildNodes(b, it.Body, sc, &keyer{}, key+"["+strconv.FormatUint(i, 10)+"]."))
	}
	return g
}

// Condition holds when the nearest preceding field of Var in scope has one
// of Values.
type Condition struct {
	Var    *Variable
	Values []uint64
}

// When builds a Condition.
func When(v *Variable, values ...uint64) Condition {
	return Condition{Var: v, Values: values}
}

func (c Condition) holds(sc *scope) bool {
	f, ok := sc.lookup(c.Var)
	if !ok {
		return false
	}
	for _, v := range c.Values {
		if f.value == v {
			return true
		}
	}
	return false
}

// Optional is a block present on the wire only while its condition holds.
type Optional struct {
	When Condition
	Body []Element
}

// If builds an Optional.
func If(c Condition, body ...Element) *Optional {
	return &Optional{When: c, Body: body}
}

func (o *Optional) decode(r *bits.Reader, sc *scope) (node, error) {
	b := &Branch{Opt: o, active: o.When.holds(sc)}
	if !b.active {
		b.Nodes = buildNodes(nil, o.Body, sc, &keyer{}, "")
		return b, nil
	}
	nodes, err := decodeNodes(o.Body, r, sc)
	if err != nil {
		return nil, err
	}
	b.Nodes = nodes
	return b, nil
}

func (o *Optional) build(b *builder, sc *scope, k *keyer, prefix string) node {
	br := &Branch{Opt: o, active: o.When.holds(sc)}
	if br.active {
		// Keys inside an active branch belong to the enclosing level.
		br.Nodes = buildNodes(b, o.Body, sc, k, prefix)
	} else {
		br.Nodes = buildNodes(nil, o.Body, sc, &keyer{}, "")
	}
	return br
}

// Group is a decoded Iteration.
type Group struct {
	Iter      *Iteration
	Instances [][]node
	count     *Field
}

// Len returns the number of materialised instances.
func (g *Group) Len() int { return len(g.Instances) }

// Instance returns the fields of instance i in layout order. Nested
// iterations and optional blocks are skipped; use Field for direct access.
func (g *Group) Instance(i int) []*Field {
	if i < 0 || i >= len(g.Instances) {
		return nil
	}
	var out []*Field
	for _, n := range g.Instances[i] {
		if f, ok := n.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// Field returns component j of instance i when it is a plain field.
func (g *Group) Field(i, j int) (*Field, bool) {
	if i < 0 || i >= len(g.Instances) || j < 0 || j >= len(g.Instances[i]) {
		return nil, false
	}
	f, ok := g.Instances[i][j].(*Field)
	return f, ok
}

// Group returns component j of instance i when it is a nested iteration.
func (g *Group) Group(i, j int) (*Group, bool) {
	if i < 0 || i >= len(g.Instances) || j < 0 || j >= len(g.Instances[i]) {
		return nil, false
	}
	sub, ok := g.Instances[i][j].(*Group)
	return sub, ok
}

func (g *Group) encode(e *encoder, sc *scope) {
	n := uint64(len(g.Instances))
	if n > g.Iter.Count.Max() {
		e.overflow(g.Iter.name(), n, g.Iter.Count.Max())
	}
	g.count.set(n)
	g.count.encode(e, sc)
	for _, inst := range g.Instances {
		encodeNodes(e, inst, sc)
	}
}

func (g *Group) clone() node {
	out := &Group{Iter: g.Iter, count: g.count.clone().(*Field)}
	out.Instances = make([][]node, len(g.Instances))
	for i, inst := range g.Instances {
		out.Instances[i] = cloneNodes(inst)
	}
	return out
}

// Branch is a decoded Optional. Its fields are always materialised so that
// toggling the condition keeps the previous values; only active branches
// reach the wire.
type Branch struct {
	Opt    *Optional
	Nodes  []node
	active bool
}

// Active reports whether the branch was present at the last decode, encode
// or walk.
func (b *Branch) Active() bool { return b.active }

func (b *Branch) encode(e *encoder, sc *scope) {
	b.active = b.Opt.When.holds(sc)
	if b.active {
		encodeNodes(e, b.Nodes, sc)
	}
}

func (b *Branch) clone() node {
	return &Branch{Opt: b.Opt, Nodes: cloneNodes(b.Nodes), active: b.active}
}

// scope is the chain of sibling lists visible to a condition.
type scope struct {
	nodes  []node
	parent *scope
}

func (sc *scope) lookup(v *Variable) (*Field, bool) {
	for s := sc; s != nil; s = s.parent {
		if f, ok := lookupNodes(s.nodes, v); ok {
			return f, true
		}
	}
	return nil, false
}

func lookupNodes(nodes []node, v *Variable) (*Field, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		switch n := nodes[i].(type) {
		case *Field:
			if n.Var == v {
				return n, true
			}
		case *Branch:
			if n.active {
				if f, ok := lookupNodes(n.Nodes, v); ok {
					return f, true
				}
			}
		}
	}
	return nil, false
}

// keyer names the fields of one level; repeated names get a #n suffix.
type keyer struct {
	seen map[string]int
}

func (k *keyer) next(name string) string {
	if k.seen == nil {
		k.seen = make(map[string]int)
	}
	k.seen[name]++
	if n := k.seen[name]; n > 1 {
		return name + "#" + strconv.Itoa(n)
	}
	return name
}

// builder supplies values by key; a nil builder yields layout defaults.
type builder struct {
	values map[string]uint64
}

func (b *builder) value(key string) (uint64, bool) {
	if b == nil || b.values == nil {
		return 0, false
	}
	v, ok := b.values[key]
	return v, ok
}

func decodeNodes(elems []Element, r *bits.Reader, parent *scope) ([]node, error) {
	sc := &scope{parent: parent, nodes: make([]node, 0, len(elems))}
	for _, el := range elems {
		n, err := el.decode(r, sc)
		if err != nil {
			return nil, err
		}
		sc.nodes = append(sc.nodes, n)
	}
	return sc.nodes, nil
}

func buildNodes(b *builder, elems []Element, parent *scope, k *keyer, prefix string) []node {
	sc := &scope{parent: parent, nodes: make([]node, 0, len(elems))}
	for _, el := range elems {
		sc.nodes = append(sc.nodes, el.build(b, sc, k, prefix))
	}
	return sc.nodes
}

func encodeNodes(e *encoder, nodes []node, parent *scope) {
	sc := &scope{parent: parent, nodes: make([]node, 0, len(nodes))}
	for _, n := range nodes {
		n.encode(e, sc)
		sc.nodes = append(sc.nodes, n)
	}
}

func cloneNodes(nodes []node) []node {
	out := make([]node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

type encoder struct {
	w        bits.Writer
	packet   string
	overflow func(field string, actual, max uint64)
}
