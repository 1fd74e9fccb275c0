package command

import (
	"context"
	"fmt"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/ports"
	"github.com/roach88/graphgate/internal/value"
)

// Connected is the result of connect_nodes and smart_connect.
type Connected struct {
	FromNode   string `json:"from_node"`
	FromOutput string `json:"from_output"`
	ToNode     string `json:"to_node"`
	ToInput    string `json:"to_input"`
	Success    bool   `json:"success"`
}

func (d *Dispatcher) endpoints(p connectParams) (host.Node, host.Node, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, nil, err
	}
	from, err := findNode(g, p.FromNodeID)
	if err != nil {
		return nil, nil, err
	}
	to, err := findNode(g, p.ToNodeID)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func (d *Dispatcher) connectNodes(_ context.Context, p connectParams) (any, error) {
	if p.FromOutput == "" {
		p.FromOutput = ports.DefaultOutput
	}
	if p.ToInput == "" {
		p.ToInput = ports.DefaultInput
	}
	from, to, err := d.endpoints(p)
	if err != nil {
		return nil, err
	}
	if err := batch.Connect(from, p.FromOutput, to, p.ToInput); err != nil {
		return nil, err
	}
	return Connected{FromNode: p.FromNodeID, FromOutput: p.FromOutput, ToNode: p.ToNodeID, ToInput: p.ToInput, Success: true}, nil
}

// smartConnect fills in missing ports with the first valid one on each
// side before connecting.
func (d *Dispatcher) smartConnect(_ context.Context, p connectParams) (any, error) {
	from, to, err := d.endpoints(p)
	if err != nil {
		return nil, err
	}
	if p.FromOutput == "" {
		p.FromOutput = ports.Default(ports.Outputs(from), ports.DefaultOutput)
	}
	if p.ToInput == "" {
		p.ToInput = ports.Default(ports.Inputs(to), ports.DefaultInput)
	}
	if err := batch.Connect(from, p.FromOutput, to, p.ToInput); err != nil {
		return nil, err
	}
	return Connected{FromNode: p.FromNodeID, FromOutput: p.FromOutput, ToNode: p.ToNodeID, ToInput: p.ToInput, Success: true}, nil
}

func (d *Dispatcher) disconnectNodes(_ context.Context, p disconnectParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	n, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}
	if _, ok := host.Find(n, p.InputID, host.Input); !ok {
		e := gwerr.NotFound("Use get_node_info to list inputs", "Property '%s' not found on node '%s'", p.InputID, p.NodeID)
		e.Valid = ports.Inputs(n)
		return nil, e
	}
	if err := n.Disconnect(p.InputID); err != nil {
		return nil, gwerr.Host("deletePropertyConnections", err)
	}
	return map[string]any{"disconnected": p.NodeID + ":" + p.InputID}, nil
}

// ParameterSet is the result of set_parameter.
type ParameterSet struct {
	NodeID      string     `json:"node_id"`
	ParameterID string     `json:"parameter_id"`
	Value       any        `json:"value"`
	ValueType   value.Type `json:"value_type"`
}

func (d *Dispatcher) setParameter(_ context.Context, p setParameterParams) (any, error) {
	if p.Value == nil {
		return nil, gwerr.InvalidParams(string(SetParameter), fmt.Errorf("value: required"))
	}
	var override value.Type
	if p.ValueType != "" {
		t, err := value.ParseType(p.ValueType)
		if err != nil {
			return nil, gwerr.InvalidParams(string(SetParameter), err)
		}
		override = t
	}

	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	n, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}

	_, isInput := host.Find(n, p.ParameterID, host.Input)
	_, isAnnotation := host.Find(n, p.ParameterID, host.Annotation)
	if available := availableProperties(n); len(available) > 0 && !isInput && !isAnnotation {
		e := gwerr.NotFound("Use get_node_info to list properties", "Property '%s' not found on node '%s'", p.ParameterID, p.NodeID)
		e.Valid = available
		return nil, e
	}

	v, err := batch.Resolve(n, p.ParameterID, p.Value, override)
	if err != nil {
		return nil, err
	}
	if err := batch.SetParam(n, p.ParameterID, v); err != nil {
		return nil, gwerr.Host(fmt.Sprintf("Failed to set '%s' on node '%s'", p.ParameterID, p.NodeID), err)
	}
	return ParameterSet{
		NodeID:      p.NodeID,
		ParameterID: p.ParameterID,
		Value:       value.Plain(v),
		ValueType:   v.Type(),
	}, nil
}

// OutputSize is the result of set_graph_output_size.
type OutputSize struct {
	Graph      string `json:"graph"`
	WidthLog2  int    `json:"width_log2"`
	HeightLog2 int    `json:"height_log2"`
	Size       string `json:"size"`
}

func (d *Dispatcher) setGraphOutputSize(_ context.Context, p outputSizeParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	if err := g.SetInputValue("$outputsize", value.Int2{int64(p.WidthLog2), int64(p.HeightLog2)}); err != nil {
		return nil, gwerr.Host("setInputPropertyValueFromId", err)
	}
	return OutputSize{
		Graph:      g.Identifier(),
		WidthLog2:  p.WidthLog2,
		HeightLog2: p.HeightLog2,
		Size:       fmt.Sprintf("%dx%d", 1<<p.WidthLog2, 1<<p.HeightLog2),
	}, nil
}
