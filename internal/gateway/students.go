package gateway

import (
	"context"
	"fmt"
)

// ListStudents returns a page of the roster
func (c *Client) ListStudents(ctx context.Context, token string, q PageQuery) (*Page[Student], error) {
	return listPage[Student](ctx, c, token, "students", q)
}

// CreateStudent adds a roster entry. A duplicate student number surfaces
// as ErrConflict.
func (c *Client) CreateStudent(ctx context.Context, token string, s Student) (*Student, error) {
	s.StudentID = 0
	raw, err := c.do(ctx, token, "POST", "students", nil, s)
	if err != nil {
		return nil, err
	}
	return decode[Student](raw)
}

// UpdateStudent patches a roster entry by ID
func (c *Client) UpdateStudent(ctx context.Context, token string, id int64, s Student) (*Student, error) {
	s.StudentID = 0
	raw, err := c.do(ctx, token, "PATCH", fmt.Sprintf("students/%d", id), nil, s)
	if err != nil {
		return nil, err
	}
	return decode[Student](raw)
}

// DeleteStudents removes roster entries by ID
func (c *Client) DeleteStudents(ctx context.Context, token string, ids []int64) error {
	_, err := c.do(ctx, token, "DELETE", "students", idsParam(ids), nil)
	return err
}
