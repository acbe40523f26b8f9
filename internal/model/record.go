package model

import (
	"fmt"
	"strings"
	"time"
)

// Condition is the physical state of a tracked asset.
type Condition string

// Conditions.
const (
	ConditionGood     Condition = "good"
	ConditionDegraded Condition = "degraded"
	ConditionDamaged  Condition = "damaged"
)

// Conditions lists every valid condition in display order.
var Conditions = []Condition{ConditionGood, ConditionDegraded, ConditionDamaged}

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDegraded, ConditionDamaged:
		return true
	}
	return false
}

// legacyConditions maps labels written by the mobile app to conditions.
var legacyConditions = map[string]Condition{
	"baik":        ConditionGood,
	"kurang baik": ConditionDegraded,
	"rusak":       ConditionDamaged,
}

// ParseCondition parses a stored or submitted condition label.
func ParseCondition(s string) (Condition, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	if c := Condition(label); c.Valid() {
		return c, nil
	}
	if c, ok := legacyConditions[label]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

// Record is a single tracked physical asset.
type Record struct {
	ID          string    `json:"id"`
	InventoryID string    `json:"inventoryId"`
	QRCode      string    `json:"qrcode"`
	ItemName    string    `json:"itemName"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	SubLocation string    `json:"subLocation"`
	Condition   Condition `json:"condition"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	OwnerID     string    `json:"ownerId"`
}

// Draft holds the editable attributes of a record.
type Draft struct {
	ItemName    string    `json:"itemName" validate:"required"`
	Brand       string    `json:"brand" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	SubLocation string    `json:"subLocation" validate:"required"`
	Condition   Condition `json:"condition" validate:"condition"`
}

// NewRecord is the input for creating a record. Identifiers are fixed at
// creation and never change afterwards.
type NewRecord struct {
	InventoryID string `json:"inventoryId"`
	QRCode      string `json:"qrcode"`
	Draft
}

// DraftFrom returns the editable attributes of r.
func DraftFrom(r Record) Draft {
	return Draft{
		ItemName:    r.ItemName,
		Brand:       r.Brand,
		Category:    r.Category,
		Location:    r.Location,
		SubLocation: r.SubLocation,
		Condition:   r.Condition,
	}
}

// Normalize trims every text field. An empty condition becomes good.
func (d Draft) Normalize() Draft {
	d.ItemName = strings.TrimSpace(d.ItemName)
	d.Brand = strings.TrimSpace(d.Brand)
	d.Category = strings.TrimSpace(d.Category)
	d.Location = strings.TrimSpace(d.Location)
	d.SubLocation = strings.TrimSpace(d.SubLocation)
	if strings.TrimSpace(string(d.Condition)) == "" {
		d.Condition = ConditionGood
	} else if c, err := ParseCondition(string(d.Condition)); err == nil {
		d.Condition = c
	}
	return d
}

// Apply copies the attributes of d onto r.
func (d Draft) Apply(r Record) Record {
	r.ItemName = d.ItemName
	r.Brand = d.Brand
	r.Category = d.Category
	r.Location = d.Location
	r.SubLocation = d.SubLocation
	r.Condition = d.Condition
	return r
}

// Normalize trims identifiers and the draft.
func (n NewRecord) Normalize() NewRecord {
	n.InventoryID = strings.TrimSpace(n.InventoryID)
	n.QRCode = strings.TrimSpace(n.QRCode)
	n.Draft = n.Draft.Normalize()
	return n
}

// Category is a registered category label.
type Category struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Principal identifies the signed-in operator.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
