package utils

import (
	"math/rand"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1

	var b strings.Builder
	b.WriteString(surname)
	for i := 0; i < nameLength; i++ {
		b.WriteString(commonNameCharacters[rand.Intn(len(commonNameCharacters))])
	}
	return b.String()
}

var digits = "0123456789"

// GenerateEmailLocalPart 把中文名转成拼音缩写再加上随机数字，例如 王伟 -> wangw42
func GenerateEmailLocalPart(chineseName string) string {
	var b strings.Builder

	for _, py := range pinyin.LazyConvert(chineseName, nil) {
		length := rand.Intn(len(py)) + 1
		b.WriteString(py[:length])
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		b.WriteByte(digits[rand.Intn(len(digits))])
	}

	return b.String()
}

var statuses = []domain.Status{
	domain.StatusPending,
	domain.StatusApproved,
	domain.StatusRejected,
}

func GenerateRandomStatus() domain.Status {
	return statuses[rand.Intn(len(statuses))]
}

// GenerateRandomIdentity 生成一个尚未入库的用户，角色和初始状态由存储层决定
func GenerateRandomIdentity(passwordHash string, emailDomainName string) *domain.Identity {
	displayName := GenerateRandomChineseName()

	return &domain.Identity{
		Email:        GenerateEmailLocalPart(displayName) + "@" + emailDomainName,
		DisplayName:  &displayName,
		PasswordHash: passwordHash,
	}
}
