package model

type Template struct {
	Id       uint32 `storm:"id,increment"`
	Name     string
	Type     string `storm:"index"`
	Body     string
	IsActive bool
}
