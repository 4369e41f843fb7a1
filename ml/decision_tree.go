package ml

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecisionTree is a binary classification tree stored as a flat node array.
// Node 0 is the root.
type DecisionTree struct {
	features []string
	nodes    []TreeNode
}

// TreeNode is one node of a DecisionTree, stored in a flat slice.
type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassLabel  int     `json:"class_label"`
	IsLeaf      bool    `json:"is_leaf"`
	Probability float64 `json:"probability"`
}

type decisionTreeArtifact struct {
	FeatureNames []string   `json:"feature_names"`
	Nodes        []TreeNode `json:"nodes"`
}

// NewDecisionTree builds a tree from its nodes and validates the structure.
func NewDecisionTree(featureNames []string, nodes []TreeNode) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.Probability < 0 || node.Probability > 1 {
				return nil, fmt.Errorf("node %d: probability %v out of range", i, node.Probability)
			}
			continue
		}
		if node.FeatureIdx < 0 {
			return nil, fmt.Errorf("node %d: negative feature index", i)
		}
		if len(featureNames) > 0 && node.FeatureIdx >= len(featureNames) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) ||
			node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid children", i)
		}
	}
	return &DecisionTree{
		features: append([]string(nil), featureNames...),
		nodes:    append([]TreeNode(nil), nodes...),
	}, nil
}

// ParseDecisionTree decodes a decision_tree artifact.
func ParseDecisionTree(data []byte) (*DecisionTree, error) {
	var artifact decisionTreeArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, err
	}
	return NewDecisionTree(artifact.FeatureNames, artifact.Nodes)
}

// Loaded reports whether the tree has nodes.
func (dt *DecisionTree) Loaded() bool {
	return dt != nil && len(dt.nodes) > 0
}

// Predict walks the tree. Children always have a larger index than their
// parent, so the walk terminates.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if !dt.Loaded() {
		return 0, 0, ErrModelNotLoaded
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Probability, nil
		}
		if node.FeatureIdx >= len(features) {
			return 0, 0, fmt.Errorf("feature index %d out of range", node.FeatureIdx)
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) FeatureNames() []string {
	if dt == nil || len(dt.features) == 0 {
		return nil
	}
	return append([]string(nil), dt.features...)
}

// MarshalJSON writes the tree in the decision_tree artifact format.
func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(decisionTreeArtifact{FeatureNames: dt.features, Nodes: dt.nodes})
}
