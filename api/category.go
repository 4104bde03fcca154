package api

import (
	"strconv"
	"strings"

	"moneytracker/database"
	"moneytracker/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 分类管理
type CategoryHandler struct{}

// NewCategoryHandler 创建分类处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoryCreateRequest 创建分类请求
type CategoryCreateRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50" example:"食物"`
	Kind string `json:"kind" binding:"required,oneof=income expense" example:"expense"`
	Sort int    `json:"sort"`
}

// CategoryUpdateRequest 更新分类请求
type CategoryUpdateRequest struct {
	Name string `json:"name" binding:"omitempty,min=1,max=50"`
	Sort *int   `json:"sort"`
}

// List 获取分类列表
// @Summary 获取分类列表
// @Description 获取全部分类，可按收支类型筛选。按排序值升序、ID升序排列。
// @Tags 分类
// @Produce json
// @Param kind query string false "收支类型筛选 (income/expense)"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	query := database.DB.Model(&models.Category{})
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var list []models.Category
	if err := query.Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}

// Create 创建分类
// @Summary 创建分类
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryCreateRequest true "分类信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "参数错误或名称已存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(c, "名称不能为空")
		return
	}

	// 唯一性
	var existing models.Category
	if err := database.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		BadRequest(c, "分类名称已存在")
		return
	}

	cat := models.Category{Name: req.Name, Kind: req.Kind, Sort: req.Sort}
	if err := database.DB.Create(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新分类
// @Summary 更新分类
// @Description 更新分类名称或排序。注意：交易按名称引用分类，改名不会同步历史交易，
// @Description 旧名称的历史记录在统计中会进入 __unknown__ 桶。
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param request body CategoryUpdateRequest true "分类信息"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 400 {object} Response "参数错误或名称已存在"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	var req CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			BadRequest(c, "名称不能为空")
			return
		}
		var existing models.Category
		if err := database.DB.Where("name = ? AND id != ?", name, cat.ID).First(&existing).Error; err == nil {
			BadRequest(c, "分类名称已存在")
			return
		}
		updates["name"] = name
	}
	if req.Sort != nil {
		updates["sort"] = *req.Sort
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "更新失败"))
			return
		}
	}

	database.DB.First(&cat, cat.ID)
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除分类
// @Summary 删除分类
// @Description 删除分类不会级联删除或修改历史交易；引用该分类的历史交易
// @Description 在统计中归入 __unknown__ 桶。
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	if err := database.DB.Delete(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}
