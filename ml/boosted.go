package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BoostedTrees evaluates a gradient-boosted tree ensemble exported with
// XGBoost's dump_model(dump_format="json"). The positive-class probability is
// the sigmoid of the base margin plus the sum of the leaf values.
type BoostedTrees struct {
	baseMargin float64
	features   []string
	trees      []boostedTree
}

type boostedTree struct {
	root  int
	nodes map[int]boostedNode
}

type boostedNode struct {
	leaf      bool
	value     float64
	feature   int
	condition float64
	yes       int
	no        int
	missing   int
}

// dumpNode mirrors one node of the XGBoost JSON dump.
type dumpNode struct {
	NodeID         int        `json:"nodeid"`
	Split          string     `json:"split"`
	SplitCondition float64    `json:"split_condition"`
	Yes            int        `json:"yes"`
	No             int        `json:"no"`
	Missing        int        `json:"missing"`
	Leaf           *float64   `json:"leaf"`
	Children       []dumpNode `json:"children"`
}

type boostedArtifact struct {
	BaseScore    *float64   `json:"base_score"`
	FeatureNames []string   `json:"feature_names"`
	Trees        []dumpNode `json:"trees"`
}

// ParseBoostedTrees decodes either a bare dump (a JSON list of trees) or a
// wrapper object carrying base_score and feature_names next to the trees.
// base_score defaults to 0.5.
func ParseBoostedTrees(data []byte) (*BoostedTrees, error) {
	var artifact boostedArtifact
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, errors.New("empty model payload")
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &artifact.Trees); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return nil, err
		}
	}
	if len(artifact.Trees) == 0 {
		return nil, errors.New("ensemble has no trees")
	}

	baseScore := 0.5
	if artifact.BaseScore != nil {
		baseScore = *artifact.BaseScore
	}
	if baseScore <= 0 || baseScore >= 1 {
		return nil, fmt.Errorf("base_score %v must be in (0,1)", baseScore)
	}

	index := make(map[string]int, len(artifact.FeatureNames))
	for i, name := range artifact.FeatureNames {
		index[name] = i
	}

	model := &BoostedTrees{
		baseMargin: math.Log(baseScore / (1 - baseScore)),
		features:   append([]string(nil), artifact.FeatureNames...),
		trees:      make([]boostedTree, 0, len(artifact.Trees)),
	}
	for i, root := range artifact.Trees {
		tree := boostedTree{root: root.NodeID, nodes: make(map[int]boostedNode)}
		if err := flattenDumpNode(root, index, tree.nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if err := tree.validate(); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		model.trees = append(model.trees, tree)
	}
	return model, nil
}

func flattenDumpNode(n dumpNode, index map[string]int, tree map[int]boostedNode) error {
	if _, dup := tree[n.NodeID]; dup {
		return fmt.Errorf("duplicate node id %d", n.NodeID)
	}
	if n.Leaf != nil {
		tree[n.NodeID] = boostedNode{leaf: true, value: *n.Leaf}
		return nil
	}
	feature, err := resolveSplit(n.Split, index)
	if err != nil {
		return fmt.Errorf("node %d: %w", n.NodeID, err)
	}
	tree[n.NodeID] = boostedNode{
		feature:   feature,
		condition: n.SplitCondition,
		yes:       n.Yes,
		no:        n.No,
		missing:   n.Missing,
	}
	for _, child := range n.Children {
		if err := flattenDumpNode(child, index, tree); err != nil {
			return err
		}
	}
	return nil
}

// resolveSplit maps a split name to a column index. Dumps made without
// feature names use f0, f1, ...
func resolveSplit(split string, index map[string]int) (int, error) {
	if i, ok := index[split]; ok {
		return i, nil
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown split feature %q", split)
}

func (t boostedTree) validate() error {
	if _, ok := t.nodes[t.root]; !ok {
		return errors.New("missing root node")
	}
	for id, node := range t.nodes {
		if node.leaf {
			continue
		}
		for _, child := range []int{node.yes, node.no, node.missing} {
			if _, ok := t.nodes[child]; !ok {
				return fmt.Errorf("node %d references missing node %d", id, child)
			}
		}
	}
	return nil
}

func (t boostedTree) score(features []float64) (float64, error) {
	id := t.root
	for steps := 0; steps <= len(t.nodes); steps++ {
		node := t.nodes[id]
		if node.leaf {
			return node.value, nil
		}
		if node.feature >= len(features) {
			return 0, fmt.Errorf("feature index %d out of range", node.feature)
		}
		x := features[node.feature]
		switch {
		case math.IsNaN(x):
			id = node.missing
		case x < node.condition:
			id = node.yes
		default:
			id = node.no
		}
	}
	return 0, errors.New("tree walk did not reach a leaf")
}

// Loaded reports whether the ensemble holds any trees.
func (b *BoostedTrees) Loaded() bool {
	return b != nil && len(b.trees) > 0
}

func (b *BoostedTrees) Predict(features []float64) (int, float64, error) {
	if !b.Loaded() {
		return 0, 0, ErrModelNotLoaded
	}
	margin := b.baseMargin
	for i, tree := range b.trees {
		leaf, err := tree.score(features)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		margin += leaf
	}
	probability := sigmoid(margin)
	label := 0
	if probability > 0.5 {
		label = 1
	}
	return label, probability, nil
}

func (b *BoostedTrees) FeatureNames() []string {
	if b == nil || len(b.features) == 0 {
		return nil
	}
	return append([]string(nil), b.features...)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
