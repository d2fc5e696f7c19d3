package usecases

import "time"

// Clock hooks for the external test package.

func (u *AdUsecase) SetNow(now func() time.Time)      { u.now = now }
func (u *OrderUsecase) SetNow(now func() time.Time)   { u.now = now }
func (u *ReleaseUsecase) SetNow(now func() time.Time) { u.now = now }
func (u *AdminUsecase) SetNow(now func() time.Time) { u.now = now }
