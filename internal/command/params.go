package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
)

// validate is shared by every command. Field names in its errors are the
// JSON parameter names.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// xy: a position or offset, at least two finite numbers.
	_ = validate.RegisterValidation("xy", func(fl validator.FieldLevel) bool {
		xy, ok := fl.Field().Interface().([]float64)
		if !ok || len(xy) < 2 {
			return false
		}
		return !math.IsNaN(xy[0]) && !math.IsInf(xy[0], 0) && !math.IsNaN(xy[1]) && !math.IsInf(xy[1], 0)
	})
}

// defaulter is implemented by parameter structs with non-zero defaults.
type defaulter interface {
	defaults()
}

// decode fills a P from raw: defaults first, then the JSON object with
// unknown fields rejected, then struct-tag validation.
func decode[P any](k Kind, raw json.RawMessage) (P, error) {
	var p P
	if d, ok := any(&p).(defaulter); ok {
		d.defaults()
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, gwerr.InvalidParams(string(k), err)
		}
	}

	if err := validate.Struct(&p); err != nil {
		return p, gwerr.InvalidParams(string(k), describe(err))
	}
	return p, nil
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), rule))
	}
	return errors.New(strings.Join(parts, "; "))
}

type graphRef struct {
	GraphIdentifier string `json:"graph_identifier"`
}

type packageRef struct {
	PackageIndex int    `json:"package_index" validate:"gte=0"`
	PackagePath  string `json:"package_path"`
}

type noParams struct{}

type createPackageParams struct {
	FilePath string `json:"file_path"`
}

type createGraphParams struct {
	packageRef
	GraphName string `json:"graph_name"`
}

func (p *createGraphParams) defaults() { p.GraphName = DefaultGraphName }

type deleteGraphParams struct {
	GraphIdentifier string `json:"graph_identifier" validate:"required"`
	PackageIndex    int    `json:"package_index" validate:"gte=0"`
}

type openGraphParams struct {
	GraphIdentifier string `json:"graph_identifier" validate:"required"`
}

type graphInfoParams struct {
	graphRef
	NodeLimit          int  `json:"node_limit" validate:"gte=0"`
	IncludeConnections bool `json:"include_connections"`
}

func (p *graphInfoParams) defaults() {
	p.NodeLimit = 100
	p.IncludeConnections = true
}

type savePackageParams struct {
	packageRef
	FilePath string `json:"file_path"`
}

type listDefinitionsParams struct {
	graphRef
	FilterText string `json:"filter_text"`
	Limit      int    `json:"limit" validate:"gt=0"`
}

func (p *listDefinitionsParams) defaults() { p.Limit = 500 }

type createNodeParams struct {
	graphRef
	DefinitionID string    `json:"definition_id" validate:"required"`
	Position     []float64 `json:"position" validate:"omitempty,xy"`
}

type createInstanceParams struct {
	graphRef
	ResourceURL string    `json:"resource_url" validate:"required"`
	Position    []float64 `json:"position" validate:"omitempty,xy"`
}

type createOutputParams struct {
	graphRef
	Usage    string    `json:"usage"`
	Label    string    `json:"label"`
	Position []float64 `json:"position" validate:"omitempty,xy"`
}

func (p *createOutputParams) defaults() { p.Usage = "baseColor" }

type nodeRef struct {
	graphRef
	NodeID string `json:"node_id" validate:"required"`
}

type moveNodeParams struct {
	nodeRef
	Position []float64 `json:"position" validate:"required,xy"`
}

type duplicateNodeParams struct {
	nodeRef
	Offset []float64 `json:"offset" validate:"omitempty,xy"`
}

func (p *duplicateNodeParams) defaults() { p.Offset = []float64{100, 0} }

type libraryNodesParams struct {
	FilterText string `json:"filter_text"`
	Limit      int    `json:"limit" validate:"gt=0"`
}

func (p *libraryNodesParams) defaults() { p.Limit = 200 }

type connectParams struct {
	graphRef
	FromNodeID string `json:"from_node_id" validate:"required"`
	ToNodeID   string `json:"to_node_id" validate:"required"`
	FromOutput string `json:"from_output"`
	ToInput    string `json:"to_input"`
}

type disconnectParams struct {
	nodeRef
	InputID string `json:"input_id" validate:"required"`
}

type setParameterParams struct {
	nodeRef
	ParameterID string `json:"parameter_id" validate:"required"`
	Value       any    `json:"value"`

	// ValueType, when set, replaces shape inference; the live property
	// type still has the last word.
	ValueType string `json:"value_type"`
}

type outputSizeParams struct {
	graphRef
	WidthLog2  int `json:"width_log2" validate:"gte=0,lte=13"`
	HeightLog2 int `json:"height_log2" validate:"gte=0,lte=13"`
}

func (p *outputSizeParams) defaults() {
	p.WidthLog2 = DefaultOutputSizeLog2
	p.HeightLog2 = DefaultOutputSizeLog2
}

type buildTarget struct {
	packageRef
	GraphName      string `json:"graph_name" validate:"required"`
	OutputSizeLog2 int    `json:"output_size_log2" validate:"gte=0,lte=13"`
	OpenInEditor   bool   `json:"open_in_editor"`
}

func (t *buildTarget) defaults() {
	t.OutputSizeLog2 = DefaultOutputSizeLog2
	t.OpenInEditor = true
}

type batchGraphParams struct {
	buildTarget
	Nodes       []batch.NodeSpec `json:"nodes"`
	Connections []batch.ConnSpec `json:"connections"`
}

type materialGraphParams struct {
	buildTarget
	RecipeName string                    `json:"recipe_name" validate:"required"`
	Overrides  map[string]map[string]any `json:"overrides"`
}

type heightmapGraphParams struct {
	buildTarget
	Style       string  `json:"style" validate:"required"`
	DetailLevel int     `json:"detail_level" validate:"gte=1,lte=3"`
	Scale       float64 `json:"scale" validate:"gt=0"`
	Disorder    float64 `json:"disorder" validate:"gte=0"`
}

func (p *heightmapGraphParams) defaults() {
	p.buildTarget.defaults()
	p.DetailLevel = 2
	p.Scale = 5.0
	p.Disorder = 0.5
}

type applyRecipeParams struct {
	graphRef
	RecipeName     string                    `json:"recipe_name" validate:"required"`
	PositionOffset []float64                 `json:"position_offset" validate:"omitempty,xy"`
	Overrides      map[string]map[string]any `json:"overrides"`
}

type recipeInfoParams struct {
	RecipeName string `json:"recipe_name" validate:"required"`
}
