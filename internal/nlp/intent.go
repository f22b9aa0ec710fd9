package nlp

import (
	"fmt"
	"strings"
)

type Intent string

const (
	IntentAdd     Intent = "add_event"
	IntentShow    Intent = "show_event"
	IntentUpdate  Intent = "update_event"
	IntentDelete  Intent = "delete_event"
	IntentUnknown Intent = "unknown"
)

// Resolver maps raw user text to an intent.
type Resolver interface {
	Resolve(text string) Intent
}

// Intent policies accepted by NewResolver.
const (
	PolicyKeyword = "keyword"
	PolicyBayes   = "bayes"
	PolicyChain   = "chain"
)

// NewResolver builds the resolver for a configured policy. The chain policy
// asks the keyword rules first and falls back to the Bayes model only when
// no trigger matched.
func NewResolver(policy string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyKeyword:
		return NewKeywordResolver(), nil
	case PolicyBayes:
		return NewBayesResolver(DefaultTrainingSet())
	case PolicyChain:
		bayes, err := NewBayesResolver(DefaultTrainingSet())
		if err != nil {
			return nil, err
		}
		return NewChainResolver(NewKeywordResolver(), bayes), nil
	default:
		return nil, fmt.Errorf("unknown intent policy %q", policy)
	}
}

type keywordRule struct {
	intent   Intent
	triggers []string
}

// KeywordResolver checks trigger substrings per intent in a fixed priority
// order. The first intent with a matching trigger wins.
type KeywordResolver struct {
	rules []keywordRule
}

func NewKeywordResolver() *KeywordResolver {
	return &KeywordResolver{rules: []keywordRule{
		{IntentDelete, []string{"xóa", "xoá", "hủy", "huỷ", "bỏ lịch", "bỏ sự kiện"}},
		{IntentUpdate, []string{"cập nhật", "sửa lịch", "sửa sự kiện", "đổi lịch", "đổi giờ", "dời"}},
		{IntentAdd, []string{"nhắc", "thêm", "tạo sự kiện", "tạo lịch", "đặt lịch", "ghi chú", "lịch hẹn"}},
		{IntentShow, []string{"lịch", "có gì", "sự kiện", "việc gì", "xem", "hiển thị"}},
	}}
}

func (r *KeywordResolver) Resolve(text string) Intent {
	folded := Fold(text)
	for _, rule := range r.rules {
		for _, trigger := range rule.triggers {
			if strings.Contains(folded, trigger) {
				return rule.intent
			}
		}
	}
	return IntentUnknown
}

// ChainResolver consults resolvers in order; the first answer other than
// IntentUnknown wins.
type ChainResolver struct {
	resolvers []Resolver
}

func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: append([]Resolver(nil), resolvers...)}
}

func (c *ChainResolver) Resolve(text string) Intent {
	for _, r := range c.resolvers {
		if intent := r.Resolve(text); intent != IntentUnknown {
			return intent
		}
	}
	return IntentUnknown
}
