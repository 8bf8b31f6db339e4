package eve

import (
	"strings"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

// AddMetadata writes the annotations of p and f. Traffic classification bits
// go under a top-level "traffic" object, everything else under "metadata".
// Neither key is written when there is nothing to report.
func AddMetadata(js *jsonbuilder.Builder, p *core.Packet, f *core.Flow, names core.NameResolver) {
	hasPktVars := p != nil && len(p.Vars) > 0
	hasFlowVars := f != nil && len(f.Vars) > 0
	if !hasPktVars && !hasFlowVars {
		return
	}

	meta := jsonbuilder.NewObject()
	populated := false
	if hasFlowVars {
		traffic, ok := AddFlowVars(meta, f, names)
		if traffic != nil {
			_ = js.SetObject("traffic", traffic)
		}
		populated = populated || ok
	}
	if hasPktVars {
		populated = AddPacketVars(meta, p, names) || populated
	}
	if !populated {
		return
	}
	if err := meta.Close(); err != nil {
		return
	}
	_ = js.SetObject("metadata", meta)
}

// flowInts collects integer variables by name. A name seen twice keeps its
// first position and its last value.
type flowInts struct {
	order  []string
	values map[string]uint32
}

func (fi *flowInts) set(name string, v uint32) {
	if fi.values == nil {
		fi.values = make(map[string]uint32)
	}
	if _, ok := fi.values[name]; !ok {
		fi.order = append(fi.order, name)
	}
	fi.values[name] = v
}

// AddFlowVars writes the flowbits, flowints and flowvars sections of f into
// the open object js. Flow bits carrying a traffic prefix are collected into
// the returned closed object instead, nil when there are none. The boolean
// reports whether js was written to.
func AddFlowVars(js *jsonbuilder.Builder, f *core.Flow, names core.NameResolver) (*jsonbuilder.Builder, bool) {
	var (
		bits, vars   *jsonbuilder.Builder
		trafficID    *jsonbuilder.Builder
		trafficLabel *jsonbuilder.Builder
		ints         flowInts
	)

	for _, v := range f.Vars {
		switch v := v.(type) {
		case core.StringVar:
			name, ok := stringVarName(v, names)
			if !ok {
				continue
			}
			if vars == nil {
				vars = jsonbuilder.NewArray()
			}
			entry := jsonbuilder.NewObject()
			_ = entry.SetString(name, Printable(v.Value))
			_ = entry.Close()
			_ = vars.AppendObject(entry)

		case core.IntVar:
			name, ok := lookup(names, v.ID, core.VarTypeFlowInt)
			if !ok {
				continue
			}
			ints.set(name, v.Value)

		case core.FlowBit:
			name, ok := lookup(names, v.ID, core.VarTypeFlowBit)
			if !ok {
				continue
			}
			switch {
			case strings.HasPrefix(name, core.TrafficIDPrefix):
				if trafficID == nil {
					trafficID = jsonbuilder.NewArray()
				}
				_ = trafficID.AppendString(strings.TrimPrefix(name, core.TrafficIDPrefix))
			case strings.HasPrefix(name, core.TrafficLabelPrefix):
				if trafficLabel == nil {
					trafficLabel = jsonbuilder.NewArray()
				}
				_ = trafficLabel.AppendString(strings.TrimPrefix(name, core.TrafficLabelPrefix))
			default:
				if bits == nil {
					bits = jsonbuilder.NewArray()
				}
				_ = bits.AppendString(name)
			}
		}
	}

	wrote := false
	if bits != nil && bits.Close() == nil {
		wrote = js.SetObject("flowbits", bits) == nil || wrote
	}
	if len(ints.order) > 0 {
		obj := jsonbuilder.NewObject()
		for _, name := range ints.order {
			_ = obj.SetUint(name, uint64(ints.values[name]))
		}
		if obj.Close() == nil {
			wrote = js.SetObject("flowints", obj) == nil || wrote
		}
	}
	if vars != nil && vars.Close() == nil {
		wrote = js.SetObject("flowvars", vars) == nil || wrote
	}

	var traffic *jsonbuilder.Builder
	if trafficID != nil || trafficLabel != nil {
		traffic = jsonbuilder.NewObject()
		if trafficID != nil && trafficID.Close() == nil {
			_ = traffic.SetObject("id", trafficID)
		}
		if trafficLabel != nil && trafficLabel.Close() == nil {
			_ = traffic.SetObject("label", trafficLabel)
		}
		if traffic.Close() != nil {
			traffic = nil
		}
	}
	return traffic, wrote
}

// AddPacketVars writes the "pktvars" array of p into the open object js and
// reports whether it did.
func AddPacketVars(js *jsonbuilder.Builder, p *core.Packet, names core.NameResolver) bool {
	var arr *jsonbuilder.Builder
	for _, pv := range p.Vars {
		var name string
		if pv.Key != nil {
			name = Printable(pv.Key)
		} else {
			n, ok := lookup(names, pv.ID, core.VarTypePktVar)
			if !ok {
				continue
			}
			name = n
		}
		if arr == nil {
			arr = jsonbuilder.NewArray()
		}
		entry := jsonbuilder.NewObject()
		_ = entry.SetString(name, Printable(pv.Value))
		_ = entry.Close()
		_ = arr.AppendObject(entry)
	}
	if arr == nil || arr.Close() != nil {
		return false
	}
	return js.SetObject("pktvars", arr) == nil
}

func stringVarName(v core.StringVar, names core.NameResolver) (string, bool) {
	if v.Key != nil {
		return Printable(v.Key), true
	}
	return lookup(names, v.ID, core.VarTypeFlowVar)
}

func lookup(names core.NameResolver, id uint32, t core.VarType) (string, bool) {
	if names == nil {
		return "", false
	}
	return names.LookupName(id, t)
}
