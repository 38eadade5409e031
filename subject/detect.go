package subject

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Subject ids produced by detection.
const (
	DataStructure = "data_structure"
	CompOrg       = "comp_org"
	OS            = "os"
	Network       = "network"
	Database      = "database"
)

type rule struct {
	id       string
	filename *regexp.Regexp
	keywords []string
}

// Rules are evaluated in order; the first filename match wins and content
// ties keep the earlier subject.
var rules = []rule{
	{
		id:       DataStructure,
		filename: regexp.MustCompile(`(?i)数据结构|data[_\- ]?structure|(?:^|[^a-z])ds(?:[^a-z]|$)`),
		keywords: []string{"数据结构", "二叉树", "链表", "栈", "队列", "排序", "查找", "图的遍历"},
	},
	{
		id:       CompOrg,
		filename: regexp.MustCompile(`(?i)计算机组成|组成原理|comp[_\- ]?org|organization`),
		keywords: []string{"计算机组成", "CPU", "指令", "存储器", "Cache", "总线", "补码", "流水线"},
	},
	{
		id:       OS,
		filename: regexp.MustCompile(`(?i)操作系统|operating[_\- ]?system|(?:^|[^a-z])os(?:[^a-z]|$)`),
		keywords: []string{"操作系统", "进程", "线程", "死锁", "页面置换", "调度", "信号量"},
	},
	{
		id:       Network,
		filename: regexp.MustCompile(`(?i)计算机网络|network|网络`),
		keywords: []string{"计算机网络", "TCP", "IP地址", "路由", "协议", "子网", "以太网"},
	},
	{
		id:       Database,
		filename: regexp.MustCompile(`(?i)数据库|database|(?:^|[^a-z])db(?:[^a-z]|$)`),
		keywords: []string{"数据库", "SQL", "关系模式", "范式", "事务", "E-R图"},
	},
}

// FromFilename detects the subject from the base name of path.
func FromFilename(path string) (string, bool) {
	base := filepath.Base(path)
	for _, r := range rules {
		if r.filename.MatchString(base) {
			return r.id, true
		}
	}
	return "", false
}

// FromContent picks the subject whose keywords occur most often in text.
func FromContent(text string) (string, bool) {
	best, bestCount := "", 0
	for _, r := range rules {
		n := 0
		for _, kw := range r.keywords {
			n += strings.Count(text, kw)
		}
		if n > bestCount {
			best, bestCount = r.id, n
		}
	}
	return best, bestCount > 0
}

// Detect tries the filename first, then the content, then DefaultID.
func Detect(path, text string) string {
	if id, ok := FromFilename(path); ok {
		return id
	}
	if id, ok := FromContent(text); ok {
		return id
	}
	return DefaultID
}
