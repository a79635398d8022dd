package model

import "time"

// EVMSnapshot EVM 指标快照，对应 evm_snapshots（只追加，不更新）
type EVMSnapshot struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"           json:"id"`
	ProjectID    int64     `gorm:"not null;index"                     json:"project_id"`
	SnapshotDate time.Time `gorm:"type:date;not null"                 json:"snapshot_date"`
	PV           float64   `gorm:"column:pv;type:numeric(12,2);not null"  json:"pv"`
	EV           float64   `gorm:"column:ev;type:numeric(12,2);not null"  json:"ev"`
	AC           float64   `gorm:"column:ac;type:numeric(12,2);not null"  json:"ac"`
	SV           float64   `gorm:"column:sv;type:numeric(12,2);not null"  json:"sv"`
	CV           float64   `gorm:"column:cv;type:numeric(12,2);not null"  json:"cv"`
	SPI          float64   `gorm:"column:spi;type:numeric(8,3);not null"  json:"spi"`
	CPI          float64   `gorm:"column:cpi;type:numeric(8,3);not null"  json:"cpi"`
	BAC          float64   `gorm:"column:bac;type:numeric(12,2);not null" json:"bac"`
	ETC          float64   `gorm:"column:etc;type:numeric(12,2);not null" json:"etc"`
	EAC          float64   `gorm:"column:eac;type:numeric(12,2);not null" json:"eac"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (EVMSnapshot) TableName() string { return "evm_snapshots" }
