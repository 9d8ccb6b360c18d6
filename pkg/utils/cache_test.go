package utils

import "testing"

func TestCacheSetGetDelete(t *testing.T) {
	SetCache("state-1", "owner-1")

	val, ok := GetCache("state-1")
	if !ok || val != "owner-1" {
		t.Errorf("期望命中 owner-1，实际 val=%s ok=%v", val, ok)
	}

	DeleteCache("state-1")
	if _, ok := GetCache("state-1"); ok {
		t.Error("删除后不应再命中")
	}
}

func TestCacheMiss(t *testing.T) {
	if _, ok := GetCache("never-set"); ok {
		t.Error("未设置的 key 不应命中")
	}
}
