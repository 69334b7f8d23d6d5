package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
)

func newMigrateCmd(deps func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移到最新版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := deps()
			if a.migrate == nil {
				return fmt.Errorf("当前环境不支持迁移")
			}
			version, err := a.migrate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to version %d\n", version)
			return nil
		},
	}
}

func newCreateProfileCmd(deps func() *app) *cobra.Command {
	var req dto.CreateProfileRequest

	cmd := &cobra.Command{
		Use:   "create-profile",
		Short: "创建账号（首个管理员只能通过此命令创建）",
		Example: "  admin create-profile --email admin@example.com --password 'S3cret!pass' --role admin\n" +
			"  admin create-profile --email ravi@example.com --password 'S3cret!pass' --role counselor --username Ravi",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(req.Password) < 8 {
				return fmt.Errorf("密码至少 8 位")
			}
			a := deps()
			profile, err := a.svc.Profile.Create(cmd.Context(), systemActor, &req)
			if err != nil {
				return err
			}
			a.logger.Info("CLI 创建账号", zap.String("id", profile.ID), zap.String("role", profile.Role))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", profile.Role, profile.Email, profile.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "登录邮箱（必填）")
	cmd.Flags().StringVar(&req.Password, "password", "", "初始密码（必填，至少 8 位）")
	cmd.Flags().StringVar(&req.Role, "role", "", "角色: admin | counselor | agent（必填）")
	cmd.Flags().StringVar(&req.Username, "username", "", "显示名")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newSetRoleCmd(deps func() *app) *cobra.Command {
	var (
		id  string
		req dto.AssignRoleRequest
	)

	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "修改账号角色",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps().svc.Profile.AssignRole(cmd.Context(), systemActor, id, &req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %s is now %s\n", id, req.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "档案 ID（必填）")
	cmd.Flags().StringVar(&req.Role, "role", "", "新角色: admin | counselor | agent（必填）")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newImportCmd(deps func() *app) *cobra.Command {
	var (
		file string
		asID string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "从 .csv / .xlsx 批量导入申请",
		Long: `逐行创建申请，单行失败不影响其他行，结束时输出失败行及原因。
--as 指定以哪个档案的身份导入（代理导入时记录为 agent_id），缺省为系统管理员。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := deps()

			actor, err := resolveActor(cmd.Context(), a.repo, asID)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开文件失败: %w", err)
			}
			defer f.Close()

			rows, err := a.svc.Import.ParseImportFile(file, f)
			if err != nil {
				return err
			}

			result, err := a.svc.Import.Import(cmd.Context(), actor, rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total=%d success=%d failed=%d\n", result.Total, result.Success, result.Failed)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "导入文件路径（必填）")
	cmd.Flags().StringVar(&asID, "as", "", "以该档案 ID 的身份导入")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
