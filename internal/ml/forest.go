// Package ml runs inference over pre-trained model artifacts. Models are
// decoded once from gob files at startup and never mutated; prediction is a
// pure function of the encoded input row, so concurrent requests share a
// model without locking.
package ml

import (
	"encoding/gob"
	"fmt"
	"os"
)

// TreeNode is one node of a decision tree in flat-array form. Leaf nodes
// carry a class index; internal nodes route on Feature <= Threshold.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Class     int
}

// Tree is a single fitted decision tree. Nodes[0] is the root.
type Tree struct {
	Nodes []TreeNode
}

// predict walks the tree for one encoded row and returns the leaf class index.
func (t *Tree) predict(row []float64) (int, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if i < 0 || i >= len(t.Nodes) {
			return 0, fmt.Errorf("tree node index %d out of range", i)
		}
		node := t.Nodes[i]
		if node.Leaf {
			return node.Class, nil
		}
		if node.Feature < 0 || node.Feature >= len(row) {
			return 0, fmt.Errorf("tree feature index %d out of range for row width %d", node.Feature, len(row))
		}
		if row[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return 0, fmt.Errorf("tree walk did not reach a leaf")
}

// ForestClassifier is a fitted random-forest classifier. Classes records the
// classifier's internal class ordering, which also serves as the stable
// tie-break order for equal probabilities.
type ForestClassifier struct {
	Classes    []string
	Trees      []Tree
	InputWidth int
}

// Width returns the encoded input width the forest was fitted to.
func (f *ForestClassifier) Width() int {
	return f.InputWidth
}

// Labels returns the classifier's internal class ordering.
func (f *ForestClassifier) Labels() []string {
	return f.Classes
}

// PredictProba returns the probability distribution over Classes for one
// encoded row, computed as the fraction of trees voting for each class.
func (f *ForestClassifier) PredictProba(row []float64) ([]float64, error) {
	if len(row) != f.InputWidth {
		return nil, &PredictionError{
			Model: "forest",
			Err:   fmt.Errorf("input width %d, model expects %d", len(row), f.InputWidth),
		}
	}
	if len(f.Trees) == 0 {
		return nil, &PredictionError{Model: "forest", Err: fmt.Errorf("no trees loaded")}
	}

	votes := make([]float64, len(f.Classes))
	for _, tree := range f.Trees {
		class, err := tree.predict(row)
		if err != nil {
			return nil, &PredictionError{Model: "forest", Err: err}
		}
		if class < 0 || class >= len(f.Classes) {
			return nil, &PredictionError{
				Model: "forest",
				Err:   fmt.Errorf("class index %d out of range for %d classes", class, len(f.Classes)),
			}
		}
		votes[class]++
	}

	proba := make([]float64, len(votes))
	for i, v := range votes {
		proba[i] = v / float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the single most probable class label. Equal probabilities
// resolve to the earlier class in the classifier's internal order.
func (f *ForestClassifier) Predict(row []float64) (string, error) {
	proba, err := f.PredictProba(row)
	if err != nil {
		return "", err
	}

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return f.Classes[best], nil
}

// Save writes the forest to disk as gob.
func (f *ForestClassifier) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(f)
}

// LoadForest reads a fitted forest classifier from disk.
func LoadForest(path string) (*ForestClassifier, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var f ForestClassifier
	if err := gob.NewDecoder(file).Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode forest: %w", err)
	}
	return &f, nil
}
