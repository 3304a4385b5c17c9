package tool

import "sort"

// Toolkit groups related tools that share configuration flags, such as the
// finance toolkit where each enabled flag contributes one function.
type Toolkit struct {
	name  string
	flags map[string]bool
	tools []Tool
}

// memberTool attaches the toolkit flags to a member tool so Describe reports them.
type memberTool struct {
	Tool
	kit *Toolkit
}

func (m memberTool) Flags() map[string]bool { return m.kit.Flags() }

// NewToolkit creates a toolkit. Flags are copied.
func NewToolkit(name string, flags map[string]bool, tools ...Tool) *Toolkit {
	k := &Toolkit{name: name, flags: make(map[string]bool, len(flags))}
	for key, v := range flags {
		k.flags[key] = v
	}
	for _, t := range tools {
		k.tools = append(k.tools, memberTool{Tool: t, kit: k})
	}
	return k
}

// Name returns the toolkit name.
func (k *Toolkit) Name() string { return k.name }

// Flags returns a copy of the configuration flags.
func (k *Toolkit) Flags() map[string]bool {
	cp := make(map[string]bool, len(k.flags))
	for key, v := range k.flags {
		cp[key] = v
	}
	return cp
}

// Tools returns the tools of the toolkit in registration order. Each reports
// the toolkit flags through Describe.
func (k *Toolkit) Tools() []Tool { return append([]Tool(nil), k.tools...) }

// Descriptors returns one descriptor per tool carrying the toolkit flags.
func (k *Toolkit) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(k.tools))
	for _, t := range k.tools {
		out = append(out, Describe(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry indexes tools by name for dispatch.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry indexes tools; a later tool with a duplicate name replaces the earlier one.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := r.tools[t.Name()]; !ok {
			r.order = append(r.order, t.Name())
		}
		r.tools[t.Name()] = t
	}
	return r
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered tools in first-registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
