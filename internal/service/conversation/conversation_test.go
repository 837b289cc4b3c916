package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
)

// mockMessageRepository 内存消息仓库，模拟数据库的序号分配
type mockMessageRepository struct {
	mu          sync.Mutex
	messages    map[string][]*model.Message // key 为 sessionID
	appendError error
	listError   error
}

func newMockMessageRepository() *mockMessageRepository {
	return &mockMessageRepository{messages: make(map[string][]*model.Message)}
}

func (m *mockMessageRepository) Append(msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendError != nil {
		return m.appendError
	}
	msg.Seq = int64(len(m.messages[msg.SessionID])) + 1
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *mockMessageRepository) ListBySession(sessionID string, limit, offset int) ([]*model.Message, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, 0, m.listError
	}
	all := m.messages[sessionID]
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockMessageRepository) RecentBySession(sessionID string, limit int) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[sessionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// TestAppendAssignsSequence 测试追加消息分配连续序号
func TestAppendAssignsSequence(t *testing.T) {
	repo := newMockMessageRepository()
	svc := NewService(repo)
	ctx := context.Background()

	m1, err := svc.AppendUser(ctx, "s1", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := svc.AppendAssistant(ctx, "s1", "hi there")
	m3, _ := svc.AppendUser(ctx, "s1", "thanks", "att-1")

	if m1.Seq != 1 || m2.Seq != 2 || m3.Seq != 3 {
		t.Errorf("序号 = %d,%d,%d, want 1,2,3", m1.Seq, m2.Seq, m3.Seq)
	}
	if m1.Role != model.MessageRoleUser || m2.Role != model.MessageRoleAssistant {
		t.Error("角色不正确")
	}
	if m3.AttachmentID != "att-1" {
		t.Errorf("AttachmentID = %q", m3.AttachmentID)
	}

	// 不同会话序号独立
	other, _ := svc.AppendUser(ctx, "s2", "hola", "")
	if other.Seq != 1 {
		t.Errorf("其他会话序号 = %d, want 1", other.Seq)
	}
}

// TestAppendStorageFailure 测试存储失败的错误分类
func TestAppendStorageFailure(t *testing.T) {
	repo := newMockMessageRepository()
	repo.appendError = errors.New("connection lost")
	svc := NewService(repo)

	_, err := svc.AppendUser(context.Background(), "s1", "hello", "")
	if !gateway.IsKind(err, gateway.KindStorageFailure) {
		t.Errorf("err = %v, want KindStorageFailure", err)
	}
}

// TestHistory 测试分页参数边界
func TestHistory(t *testing.T) {
	repo := newMockMessageRepository()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		svc.AppendUser(ctx, "s1", "msg", "")
	}

	t.Run("默认分页", func(t *testing.T) {
		messages, total, err := svc.History(ctx, "s1", 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != DefaultPageSize {
			t.Errorf("len = %d, want %d", len(messages), DefaultPageSize)
		}
		if total != 120 {
			t.Errorf("total = %d, want 120", total)
		}
	})

	t.Run("超过上限被截断", func(t *testing.T) {
		messages, _, err := svc.History(ctx, "s1", 500, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != MaxPageSize {
			t.Errorf("len = %d, want %d", len(messages), MaxPageSize)
		}
	})

	t.Run("偏移生效且保持升序", func(t *testing.T) {
		messages, _, err := svc.History(ctx, "s1", 10, 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != 10 {
			t.Fatalf("len = %d", len(messages))
		}
		if messages[0].Seq != 101 {
			t.Errorf("首条序号 = %d, want 101", messages[0].Seq)
		}
		for i := 1; i < len(messages); i++ {
			if messages[i].Seq != messages[i-1].Seq+1 {
				t.Fatal("序号应连续递增")
			}
		}
	})
}

// TestRecent 测试最近消息窗口
func TestRecent(t *testing.T) {
	repo := newMockMessageRepository()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		svc.AppendUser(ctx, "s1", "msg", "")
	}

	messages, err := svc.Recent(ctx, "s1", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 20 {
		t.Fatalf("len = %d, want 20", len(messages))
	}
	if messages[0].Seq != 11 || messages[19].Seq != 30 {
		t.Errorf("窗口范围 = [%d, %d], want [11, 30]", messages[0].Seq, messages[19].Seq)
	}
}
