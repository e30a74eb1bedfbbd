package hclload

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a config file may contain. Anything
// else is a decode error.
type fileRoot struct {
	Parameters   []*parameterBlock   `hcl:"parameter,block"`
	Bounds       []*boundBlock       `hcl:"bound,block"`
	Certificates []*certificateBlock `hcl:"certificate,block"`
}

type parameterBlock struct {
	Path   string         `hcl:"path,label"`
	Value  hcl.Expression `hcl:"value,optional"`
	Status string         `hcl:"status,optional"`
	Source string         `hcl:"source,optional"`
	Bound  *boundBody     `hcl:"bound,block"`
}

type boundBody struct {
	Value       float64 `hcl:"value"`
	Type        string  `hcl:"type,optional"`
	Source      string  `hcl:"source,optional"`
	Uncertainty float64 `hcl:"uncertainty,optional"`
}

// boundBlock declares a bound for a path that is not seeded, typically a
// prediction that a unit will produce.
type boundBlock struct {
	Path        string  `hcl:"path,label"`
	Value       float64 `hcl:"value"`
	Type        string  `hcl:"type,optional"`
	Source      string  `hcl:"source,optional"`
	Uncertainty float64 `hcl:"uncertainty,optional"`
}

type certificateBlock struct {
	ID         string   `hcl:"id,label"`
	Assertion  string   `hcl:"assertion,optional"`
	Sector     string   `hcl:"sector,optional"`
	Kind       string   `hcl:"kind,optional"`
	Param      string   `hcl:"param,optional"`
	Condition  string   `hcl:"condition,optional"`
	Deviation  string   `hcl:"deviation,optional"`
	Tolerance  float64  `hcl:"tolerance,optional"`
	References []string `hcl:"references,optional"`
}
