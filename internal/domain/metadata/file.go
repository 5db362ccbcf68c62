package metadata

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FileAccessOpen       = "open"
	FileAccessControlled = "controlled"
)

type File struct {
	ObjectID   string         `gorm:"column:id;primaryKey" json:"objectId"`
	AnalysisID string         `gorm:"column:analysis_id;not null;index:idx_file_analysis_name,unique,priority:1" json:"analysisId"`
	StudyID    string         `gorm:"column:study_id;not null;index" json:"studyId"`
	FileName   string         `gorm:"column:file_name;not null;index:idx_file_analysis_name,unique,priority:2" json:"fileName"`
	FileSize   int64          `gorm:"column:file_size" json:"fileSize"`
	FileType   string         `gorm:"column:file_type" json:"fileType"`
	FileMD5Sum string         `gorm:"column:file_md5sum" json:"fileMd5sum"`
	FileAccess string         `gorm:"column:file_access" json:"fileAccess"`
	DataType   string         `gorm:"column:data_type" json:"dataType,omitempty"`
	Info       datatypes.JSON `gorm:"-" json:"info,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"-"`
	UpdatedAt  time.Time      `gorm:"not null" json:"-"`
}

func (File) TableName() string { return "file" }
