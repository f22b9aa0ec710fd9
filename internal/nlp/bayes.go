package nlp

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Example is one labeled training sentence.
type Example struct {
	Text   string
	Intent Intent
}

// DefaultTrainingSet returns the sixteen hand-labeled sentences the
// statistical resolver ships with.
func DefaultTrainingSet() []Example {
	return []Example{
		{"nhắc tôi họp nhóm", IntentAdd},
		{"nhắc tôi đi học lúc 8 giờ", IntentAdd},
		{"nhắc tôi có lịch sinh nhật", IntentAdd},
		{"thêm lịch sinh nhật", IntentAdd},
		{"đặt lịch họp với sếp", IntentAdd},
		{"tạo lịch đi ăn trưa ngày mai", IntentAdd},
		{"nhắc tôi ngày mai có lịch hẹn đi ăn tối lúc 19 giờ", IntentAdd},
		{"tôi muốn thêm sự kiện họp vào ngày mai", IntentAdd},
		{"xóa lịch họp hôm nay", IntentDelete},
		{"bỏ sự kiện ngày mai", IntentDelete},
		{"hủy lịch sinh nhật", IntentDelete},
		{"hiển thị lịch hôm nay", IntentShow},
		{"xem các sự kiện ngày mai", IntentShow},
		{"ngày mai tôi có lịch gì không", IntentShow},
		{"cho tôi biết hôm nay có lịch gì", IntentShow},
		{"cập nhật sự kiện họp nhóm", IntentUpdate},
	}
}

// BayesResolver is a TF-IDF weighted multinomial Naive Bayes classifier.
// It always answers with one of its trained intents and never returns
// IntentUnknown.
type BayesResolver struct {
	vocab    map[string]int
	idf      []float64
	classes  []Intent
	logPrior []float64
	logProb  [][]float64
}

const bayesAlpha = 1.0

func NewBayesResolver(examples []Example) (*BayesResolver, error) {
	if len(examples) == 0 {
		return nil, errors.New("bayes resolver needs at least one training example")
	}

	docs := make([][]string, len(examples))
	vocab := make(map[string]int)
	for i, ex := range examples {
		docs[i] = tokenize(ex.Text)
		for _, tok := range docs[i] {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = 0
			}
		}
	}
	// Sorted vocabulary keeps feature indices stable across runs.
	terms := make([]string, 0, len(vocab))
	for tok := range vocab {
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	for i, tok := range terms {
		vocab[tok] = i
	}

	df := make([]float64, len(terms))
	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, tok := range doc {
			idx := vocab[tok]
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}
	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i := range idf {
		idf[i] = math.Log((1+n)/(1+df[i])) + 1
	}

	r := &BayesResolver{vocab: vocab, idf: idf}

	classIndex := make(map[Intent]int)
	for _, ex := range examples {
		if _, ok := classIndex[ex.Intent]; !ok {
			classIndex[ex.Intent] = 0
			r.classes = append(r.classes, ex.Intent)
		}
	}
	sort.Slice(r.classes, func(i, j int) bool { return r.classes[i] < r.classes[j] })
	for i, c := range r.classes {
		classIndex[c] = i
	}

	counts := make([]float64, len(r.classes))
	featureCounts := make([][]float64, len(r.classes))
	for i := range featureCounts {
		featureCounts[i] = make([]float64, len(terms))
	}
	for i, ex := range examples {
		c := classIndex[ex.Intent]
		counts[c]++
		for idx, w := range r.vectorize(docs[i]) {
			featureCounts[c][idx] += w
		}
	}

	r.logPrior = make([]float64, len(r.classes))
	r.logProb = make([][]float64, len(r.classes))
	v := float64(len(terms))
	for c := range r.classes {
		r.logPrior[c] = math.Log(counts[c] / n)
		total := 0.0
		for _, fc := range featureCounts[c] {
			total += fc
		}
		r.logProb[c] = make([]float64, len(terms))
		for idx, fc := range featureCounts[c] {
			r.logProb[c][idx] = math.Log((fc + bayesAlpha) / (total + bayesAlpha*v))
		}
	}

	return r, nil
}

func (r *BayesResolver) Resolve(text string) Intent {
	x := r.vectorize(tokenize(text))
	best := 0
	bestScore := math.Inf(-1)
	for c := range r.classes {
		score := r.logPrior[c]
		for idx, w := range x {
			score += w * r.logProb[c][idx]
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return r.classes[best]
}

// vectorize returns the l2-normalized TF-IDF weights of the known tokens.
func (r *BayesResolver) vectorize(tokens []string) map[int]float64 {
	x := make(map[int]float64)
	for _, tok := range tokens {
		if idx, ok := r.vocab[tok]; ok {
			x[idx]++
		}
	}
	norm := 0.0
	for idx, tf := range x {
		w := tf * r.idf[idx]
		x[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return x
	}
	norm = math.Sqrt(norm)
	for idx := range x {
		x[idx] /= norm
	}
	return x
}

// tokenize splits folded text into syllables and adds adjacent syllable
// pairs, which stand in for Vietnamese compound words ("họp nhóm",
// "sinh nhật").
func tokenize(text string) []string {
	syllables := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, 2*len(syllables))
	tokens = append(tokens, syllables...)
	for i := 0; i+1 < len(syllables); i++ {
		tokens = append(tokens, syllables[i]+" "+syllables[i+1])
	}
	return tokens
}
