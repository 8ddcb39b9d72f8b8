package helpers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(n), nil
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Page) TotalPages(total int64) int64 {
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}

// ParsePage reads the page and limit query parameters. Limits above the
// maximum are clamped.
func ParsePage(c *gin.Context) (Page, error) {
	pageNum, err := StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || pageNum < 1 {
		return Page{}, errors.New("invalid page number")
	}

	limitNum, err := StringToInt(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limitNum < 1 {
		return Page{}, errors.New("invalid limit")
	}
	if limitNum > maxPageLimit {
		limitNum = maxPageLimit
	}

	return Page{Page: pageNum, Limit: limitNum}, nil
}
