package encoder

// Language selects a default pretrained model. The values are the model
// names used for hub lookup and cache layout.
type Language string

const (
	English      Language = "bert-base-uncased"
	EnglishCased Language = "bert-base-cased"
	EnglishLarge Language = "bert-large-uncased"
	Chinese      Language = "bert-base-chinese"
	Multilingual Language = "bert-base-multilingual-cased"
)
