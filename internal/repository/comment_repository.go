package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
)

// CommentRepository 三类评论共用，按 kind 选择表
type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) table(kind model.CommentKind) *gorm.DB {
	return r.DB.Table(string(kind))
}

func (r *CommentRepository) Create(kind model.CommentKind, c *model.Comment) error {
	return r.table(kind).Create(c).Error
}

func (r *CommentRepository) FindByID(kind model.CommentKind, id uint) (*model.Comment, error) {
	var c model.Comment
	err := r.table(kind).Where("id = ?", id).First(&c).Error
	return &c, err
}

func (r *CommentRepository) FindByParent(kind model.CommentKind, parentID uint) ([]model.Comment, error) {
	var list []model.Comment
	err := r.table(kind).Where("parent_id = ?", parentID).Order("created_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *CommentRepository) UpdateText(kind model.CommentKind, c *model.Comment, text string) error {
	if err := r.table(kind).Model(c).Update("text", text).Error; err != nil {
		return err
	}
	c.Text = text
	return nil
}

func (r *CommentRepository) Delete(kind model.CommentKind, id uint) error {
	return r.table(kind).Where("id = ?", id).Delete(&model.Comment{}).Error
}
