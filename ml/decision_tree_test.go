package ml

import (
	"encoding/json"
	"testing"
)

func creditTree(t *testing.T) *DecisionTree {
	t.Helper()
	nodes := []TreeNode{
		{FeatureIdx: 4, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: 0, Probability: 0.08},
		{FeatureIdx: 0, Threshold: 2000, LeftChild: 3, RightChild: 4},
		{IsLeaf: true, ClassLabel: 0, Probability: 0.45},
		{IsLeaf: true, ClassLabel: 1, Probability: 0.82},
	}
	tree, err := NewDecisionTree(trainingColumns, nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tree
}

func TestDecisionTreePredict(t *testing.T) {
	tree := creditTree(t)
	vector := alignedSample(t)

	label, probability, err := tree.Predict(vector.Values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 || probability != 0.82 {
		t.Fatalf("expected (1, 0.82), got (%d, %v)", label, probability)
	}

	record := sampleApplicant()
	record.CreditHistory = 0
	vector, _ = Align(record, trainingSchema(t))
	label, probability, err = tree.Predict(vector.Values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 || probability != 0.08 {
		t.Fatalf("expected (0, 0.08), got (%d, %v)", label, probability)
	}
}

func TestDecisionTreeRoundTrip(t *testing.T) {
	payload, err := json.Marshal(creditTree(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree, err := ParseDecisionTree(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.FeatureNames()) != len(trainingColumns) {
		t.Fatalf("expected %d feature names, got %d", len(trainingColumns), len(tree.FeatureNames()))
	}
}

func TestDecisionTreeRejectsInvalidStructure(t *testing.T) {
	cases := map[string][]TreeNode{
		"empty":          nil,
		"cycle":          {{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true}},
		"dangling child": {{FeatureIdx: 0, LeftChild: 1, RightChild: 5}, {IsLeaf: true}},
		"bad leaf":       {{IsLeaf: true, Probability: 1.5}},
		"feature range":  {{FeatureIdx: 99, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true}},
	}
	for name, nodes := range cases {
		if _, err := NewDecisionTree(trainingColumns, nodes); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecisionTreeShortVector(t *testing.T) {
	tree := creditTree(t)
	if _, _, err := tree.Predict([]float64{1, 2}); err == nil {
		t.Fatal("expected error for short feature vector")
	}
}
