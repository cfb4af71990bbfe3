package stream

// Terminator 判断一个事件是否终结流
type Terminator func(Event) bool

// OnComplete 显式的 complete 事件
func OnComplete(e Event) bool {
	return e.Type == EventComplete
}

// OnFinalRole role 为 final 的 step / final 事件
func OnFinalRole(e Event) bool {
	return e.Role == RoleFinal && (e.Type == EventStep || e.Type == EventFinal)
}

// AnyOf 任一条件满足即终结，先到先得
func AnyOf(ts ...Terminator) Terminator {
	return func(e Event) bool {
		for _, t := range ts {
			if t != nil && t(e) {
				return true
			}
		}
		return false
	}
}

// DefaultTerminator 后端在不同模式间不一致，两种终结信号都接受
var DefaultTerminator = AnyOf(OnComplete, OnFinalRole)
