package tui

import (
	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// Language selects a label table.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageThai    Language = "th"
)

// Labels is the user-facing text of the terminal UI.
type Labels struct {
	Title    string
	Loading  string
	Ready    string
	Timeline string
	Admin    string
	Workload string
	Detail   string

	ByProject string
	ByPerson  string
	AllDates  string
	Today     string
	ThisWeek  string
	NextWeek  string
	ThisMonth string

	People   string
	Teams    string
	Projects string

	Task        string
	Project     string
	Priority    string
	Health      string
	Delay       string
	Progress    string
	Phases      string
	Person      string
	Team        string
	Status      string
	Window      string
	Pending     string
	Hours       string
	Utilization string
	Members     string
	Capacity    string
	Link        string
	DelayReason string

	NoRows        string
	Filters       string
	Sort          string
	Any           string
	Selected      string
	PickStatus    string
	Copied        string
	NoLink        string
	Updated       string
	NotPersisted  string
	FromCache     string
	FromSeed      string
	ConfirmDelete string
	Deleted       string

	NotStarted string
	Started    string
	Blocked    string
	Hold       string
	Revision   string
	Done       string

	OnTrack string
	AtRisk  string
	Delayed string

	Low    string
	Medium string
	High   string
	Urgent string
}

var english = Labels{
	Title:    "metier",
	Loading:  "loading...",
	Ready:    "ready",
	Timeline: "Timeline",
	Admin:    "Tasks",
	Workload: "Workload",
	Detail:   "Task detail",

	ByProject: "by project",
	ByPerson:  "by person",
	AllDates:  "default window",
	Today:     "today",
	ThisWeek:  "this week",
	NextWeek:  "next week",
	ThisMonth: "this month",

	People:   "People",
	Teams:    "Teams",
	Projects: "Projects",

	Task:        "Task",
	Project:     "Project",
	Priority:    "Priority",
	Health:      "Health",
	Delay:       "Delay",
	Progress:    "Progress",
	Phases:      "Phases",
	Person:      "Person",
	Team:        "Team",
	Status:      "Status",
	Window:      "Window",
	Pending:     "Pending",
	Hours:       "Hours",
	Utilization: "Util.",
	Members:     "Members",
	Capacity:    "Capacity",
	Link:        "Link",
	DelayReason: "Delay reason",

	NoRows:        "nothing to show",
	Filters:       "filters",
	Sort:          "sort",
	Any:           "any",
	Selected:      "selected",
	PickStatus:    "Set status",
	Copied:        "link copied",
	NoLink:        "task has no link",
	Updated:       "updated",
	NotPersisted:  "saved locally only",
	FromCache:     "store unavailable, showing cached data",
	FromSeed:      "store unavailable, showing sample data",
	ConfirmDelete: "delete selected tasks? y/n",
	Deleted:       "deleted",

	NotStarted: "Not started",
	Started:    "In progress",
	Blocked:    "Blocked",
	Hold:       "On hold",
	Revision:   "Revision",
	Done:       "Done",

	OnTrack: "On track",
	AtRisk:  "At risk",
	Delayed: "Delayed",

	Low:    "Low",
	Medium: "Medium",
	High:   "High",
	Urgent: "Urgent",
}

var thai = Labels{
	Title:    "metier",
	Loading:  "กำลังโหลด...",
	Ready:    "พร้อม",
	Timeline: "ไทม์ไลน์",
	Admin:    "งานทั้งหมด",
	Workload: "ภาระงาน",
	Detail:   "รายละเอียดงาน",

	ByProject: "ตามโปรเจกต์",
	ByPerson:  "ตามบุคคล",
	AllDates:  "ช่วงเริ่มต้น",
	Today:     "วันนี้",
	ThisWeek:  "สัปดาห์นี้",
	NextWeek:  "สัปดาห์หน้า",
	ThisMonth: "เดือนนี้",

	People:   "บุคคล",
	Teams:    "ทีม",
	Projects: "โปรเจกต์",

	Task:        "งาน",
	Project:     "โปรเจกต์",
	Priority:    "ความสำคัญ",
	Health:      "สถานะรวม",
	Delay:       "ล่าช้า",
	Progress:    "ความคืบหน้า",
	Phases:      "ขั้นตอน",
	Person:      "ผู้รับผิดชอบ",
	Team:        "ทีม",
	Status:      "สถานะ",
	Window:      "ช่วงเวลา",
	Pending:     "ค้างอยู่",
	Hours:       "ชั่วโมง",
	Utilization: "การใช้",
	Members:     "สมาชิก",
	Capacity:    "กำลังคน",
	Link:        "ลิงก์",
	DelayReason: "เหตุผลที่ล่าช้า",

	NoRows:        "ไม่มีข้อมูล",
	Filters:       "ตัวกรอง",
	Sort:          "เรียง",
	Any:           "ทั้งหมด",
	Selected:      "ที่เลือก",
	PickStatus:    "เปลี่ยนสถานะ",
	Copied:        "คัดลอกลิงก์แล้ว",
	NoLink:        "งานนี้ไม่มีลิงก์",
	Updated:       "อัปเดตแล้ว",
	NotPersisted:  "บันทึกไว้ในเครื่องเท่านั้น",
	FromCache:     "เชื่อมต่อฐานข้อมูลไม่ได้ แสดงข้อมูลที่แคชไว้",
	FromSeed:      "เชื่อมต่อฐานข้อมูลไม่ได้ แสดงข้อมูลตัวอย่าง",
	ConfirmDelete: "ลบงานที่เลือก? y/n",
	Deleted:       "ลบแล้ว",

	NotStarted: "ยังไม่เริ่ม",
	Started:    "กำลังทำ",
	Blocked:    "ติดขัด",
	Hold:       "พักไว้",
	Revision:   "แก้ไข",
	Done:       "เสร็จแล้ว",

	OnTrack: "ตามแผน",
	AtRisk:  "เสี่ยง",
	Delayed: "ล่าช้า",

	Low:    "ต่ำ",
	Medium: "ปานกลาง",
	High:   "สูง",
	Urgent: "ด่วน",
}

// LabelsFor returns the label table for lang, English when unknown.
func LabelsFor(lang Language) Labels {
	if lang == LanguageThai {
		return thai
	}
	return english
}

func (l Labels) PhaseStatus(s domain.PhaseStatus) string {
	switch s {
	case domain.StatusNotStarted:
		return l.NotStarted
	case domain.StatusStarted:
		return l.Started
	case domain.StatusBlocked:
		return l.Blocked
	case domain.StatusHold:
		return l.Hold
	case domain.StatusRevision:
		return l.Revision
	case domain.StatusDone:
		return l.Done
	default:
		return string(s)
	}
}

func (l Labels) HealthName(h domain.Health) string {
	switch h {
	case domain.HealthOnTrack:
		return l.OnTrack
	case domain.HealthAtRisk:
		return l.AtRisk
	case domain.HealthDelayed:
		return l.Delayed
	default:
		return string(h)
	}
}

func (l Labels) PriorityName(p domain.Priority) string {
	switch p.OrDefault() {
	case domain.PriorityLow:
		return l.Low
	case domain.PriorityMedium:
		return l.Medium
	case domain.PriorityHigh:
		return l.High
	case domain.PriorityUrgent:
		return l.Urgent
	default:
		return string(p)
	}
}

func (l Labels) RangeName(kind schedule.RangeKind) string {
	switch kind {
	case schedule.RangeToday:
		return l.Today
	case schedule.RangeThisWeek:
		return l.ThisWeek
	case schedule.RangeNextWeek:
		return l.NextWeek
	case schedule.RangeThisMonth:
		return l.ThisMonth
	default:
		return l.AllDates
	}
}

func (l Labels) ModeName(mode schedule.ViewMode) string {
	if mode == schedule.ViewByPerson {
		return l.ByPerson
	}
	return l.ByProject
}
